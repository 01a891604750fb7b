package classify_test

import (
	"fmt"

	"github.com/matzehuels/votemap/pkg/classify"
)

func ExampleBreaks() {
	votes := []float64{5, 10, 10, 50, 55, 90, 0}

	for _, m := range classify.Methods {
		breaks, err := classify.Breaks(votes, 3, m)
		if err != nil {
			panic(err)
		}
		fmt.Println(m, breaks)
	}
	// Output:
	// jenks [5 10 55 90]
	// quantile [5 10 52.5 90]
	// equal [5 33.33333333333333 61.666666666666664 90]
}
