package report

import (
	"errors"
	"testing"
	"time"
)

func TestReportFinish(t *testing.T) {
	r := New("run", "salto")
	r.Finish(time.Now())
	if r.Status != StatusOK {
		t.Errorf("Status = %v, want %v", r.Status, StatusOK)
	}

	r.Warn(DataQuality(CodeNonNumericVotes, "odn.csv", 4, "bad count %q", "x"))
	r.Finish(time.Now())
	if r.Status != StatusWarned {
		t.Errorf("Status = %v, want %v", r.Status, StatusWarned)
	}

	r.Fail(errors.New("boom"), "IO_ERROR")
	r.Finish(time.Now())
	if r.Status != StatusFailed {
		t.Errorf("Status = %v, want %v", r.Status, StatusFailed)
	}
	if r.ErrorCode != "IO_ERROR" {
		t.Errorf("ErrorCode = %q, want IO_ERROR", r.ErrorCode)
	}
}

func TestWarningString(t *testing.T) {
	tests := []struct {
		w    Warning
		want string
	}{
		{DataQuality(CodeNonNumericVotes, "odn.csv", 12, "bad"), "odn.csv:12: bad"},
		{SizePolicy("salto_map.json", "too big"), "salto_map.json: too big"},
		{Warning{Message: "plain"}, "plain"},
	}
	for _, tt := range tests {
		if got := tt.w.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCountByCategory(t *testing.T) {
	r := New("run", "rivera")
	r.Warn(
		DataQuality(CodePartyMismatch, "odn.csv", 1, "a"),
		DataQuality(CodeDuplicateKey, "odn.csv", 0, "b"),
		SizePolicy("rivera_map.json", "c"),
	)
	counts := r.CountByCategory()
	if counts[CategoryDataQuality] != 2 {
		t.Errorf("data quality = %d, want 2", counts[CategoryDataQuality])
	}
	if counts[CategorySizePolicy] != 1 {
		t.Errorf("size policy = %d, want 1", counts[CategorySizePolicy])
	}
}

func TestSummarize(t *testing.T) {
	ok := New("run", "salto")
	ok.Finish(time.Now())

	warned := New("run", "artigas")
	warned.Warn(SizePolicy("artigas_map.json", "big"))
	warned.Finish(time.Now())

	failed := New("run", "montevideo")
	failed.Fail(errors.New("bad csv"), "INVALID_CSV")
	failed.Finish(time.Now())

	s := Summarize("run", []*Report{ok, nil, failed, warned})

	if s.Succeeded != 2 || s.Warned != 1 || s.Failed != 1 {
		t.Errorf("Summary = %d/%d/%d, want 2/1/1", s.Succeeded, s.Warned, s.Failed)
	}
	if s.OK() {
		t.Error("OK() = true with a failed department")
	}
	if len(s.Reports) != 3 {
		t.Fatalf("len(Reports) = %d, want 3", len(s.Reports))
	}
	if s.Reports[0].Department != "artigas" || s.Reports[2].Department != "salto" {
		t.Errorf("Reports not sorted by department: %s, %s", s.Reports[0].Department, s.Reports[2].Department)
	}
}
