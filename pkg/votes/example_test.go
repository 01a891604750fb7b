package votes_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/votemap/pkg/votes"
)

func ExampleAggregate() {
	csv := "HOJA,ZONA,PARTIDO,CNT_VOTOS\n" +
		"609,Centro,Frente Amplio,10\n" +
		"609,Centro,Frente Amplio,5\n" +
		"609,Cordon,Frente Amplio,7\n"

	res, err := votes.Aggregate(strings.NewReader(csv), "odn.csv")
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Table.Votes("609", "Centro"))
	fmt.Println(res.Table.Total("609"))
	fmt.Println(res.Table.Zones("609"))
	// Output:
	// 15
	// 22
	// [Centro Cordon]
}
