// Package csvpairs reads and writes the pair-list CSV format shared
// between the overlap-checker and imprint CLI stages: one row per pair,
// fields "i, j, status[, vol_common, vol_i, vol_j]".
package csvpairs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/chazu/solidprep/pkg/errs"
)

// Status is the per-pair status recorded in a CSV row.
type Status string

const (
	Touch      Status = "touch"
	Overlap    Status = "overlap"
	BadOverlap Status = "bad_overlap"
)

// Row is one pair-list entry.
type Row struct {
	I, J                         int
	Status                       Status
	VolCommon, VolI, VolJ        float64
	HasVolumes                   bool
}

// WriteRow appends one row to w in the shared format.
func WriteRow(w *csv.Writer, r Row) error {
	fields := []string{strconv.Itoa(r.I), strconv.Itoa(r.J), string(r.Status)}
	if r.HasVolumes {
		fields = append(fields,
			strconv.FormatFloat(r.VolCommon, 'g', -1, 64),
			strconv.FormatFloat(r.VolI, 'g', -1, 64),
			strconv.FormatFloat(r.VolJ, 'g', -1, 64),
		)
	}
	return w.Write(fields)
}

// ReadAll parses every row from r. numSolids is used to validate that
// every index is in range; a row referencing an out-of-range index is a
// structural error.
func ReadAll(r io.Reader, numSolids int) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvpairs: parse: %w", errs.ErrIO)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("csvpairs: row %v has fewer than 3 fields: %w", rec, errs.ErrStructural)
		}

		row, err := parseRow(rec)
		if err != nil {
			return nil, err
		}
		if row.I < 0 || row.I >= numSolids || row.J < 0 || row.J >= numSolids {
			return nil, fmt.Errorf("csvpairs: pair (%d,%d) out of range for %d solids: %w", row.I, row.J, numSolids, errs.ErrStructural)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string) (Row, error) {
	i, err := strconv.Atoi(rec[0])
	if err != nil {
		return Row{}, fmt.Errorf("csvpairs: bad index %q: %w", rec[0], errs.ErrStructural)
	}
	j, err := strconv.Atoi(rec[1])
	if err != nil {
		return Row{}, fmt.Errorf("csvpairs: bad index %q: %w", rec[1], errs.ErrStructural)
	}
	status := Status(rec[2])
	if status != Touch && status != Overlap && status != BadOverlap {
		return Row{}, fmt.Errorf("csvpairs: unknown status %q: %w", rec[2], errs.ErrStructural)
	}

	row := Row{I: i, J: j, Status: status}
	if len(rec) >= 6 {
		vc, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return Row{}, fmt.Errorf("csvpairs: bad vol_common %q: %w", rec[3], errs.ErrStructural)
		}
		vi, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return Row{}, fmt.Errorf("csvpairs: bad vol_i %q: %w", rec[4], errs.ErrStructural)
		}
		vj, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return Row{}, fmt.Errorf("csvpairs: bad vol_j %q: %w", rec[5], errs.ErrStructural)
		}
		row.VolCommon, row.VolI, row.VolJ, row.HasVolumes = vc, vi, vj, true
	}
	return row, nil
}
