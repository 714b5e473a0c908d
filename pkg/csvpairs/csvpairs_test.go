package csvpairs

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := []Row{
		{I: 2, J: 0, Status: Touch},
		{I: 3, J: 1, Status: Overlap, VolCommon: 12.5, VolI: 100, VolJ: 80, HasVolumes: true},
	}
	for _, r := range rows {
		if err := WriteRow(w, r); err != nil {
			t.Fatalf("WriteRow() error = %v", err)
		}
	}
	w.Flush()

	got, err := ReadAll(&buf, 4)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[1].VolCommon != 12.5 || !got[1].HasVolumes {
		t.Errorf("got[1] = %+v, want VolCommon=12.5 HasVolumes=true", got[1])
	}
}

func TestReadAllRejectsOutOfRangeIndex(t *testing.T) {
	r := strings.NewReader("5,0,touch\n")
	_, err := ReadAll(r, 3)
	if err == nil {
		t.Fatal("ReadAll() error = nil, want error for out-of-range index")
	}
}

func TestReadAllRejectsUnknownStatus(t *testing.T) {
	r := strings.NewReader("0,1,bogus\n")
	_, err := ReadAll(r, 3)
	if err == nil {
		t.Fatal("ReadAll() error = nil, want error for unknown status")
	}
}

func TestReadAllSkipsNothingOnEmptyInput(t *testing.T) {
	r := strings.NewReader("")
	rows, err := ReadAll(r, 3)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}
