package featurization

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

const (
	DefaultSMILESColumn = "SMILES"
	DefaultLabelColumn  = "Inh Power"
)

// ReadRows reads batch rows from a CSV stream with a header line. The SMILES
// column is required. An empty labelCol yields unlabeled rows; otherwise
// the column must exist, and a blank cell leaves that row unlabeled.
func ReadRows(r io.Reader, smilesCol, labelCol string) ([]moltypes.GraphRow, error) {
	if smilesCol == "" {
		smilesCol = DefaultSMILESColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, readError("input has no header line")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetReadFailed, "failed to read dataset")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	smilesIdx := columnIndex(header, smilesCol)
	if smilesIdx < 0 {
		return nil, readError(fmt.Sprintf("column %q not found", smilesCol))
	}
	labelIdx := -1
	if labelCol != "" {
		if labelIdx = columnIndex(header, labelCol); labelIdx < 0 {
			return nil, readError(fmt.Sprintf("column %q not found", labelCol))
		}
	}

	var rows []moltypes.GraphRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatasetReadFailed, "failed to read dataset")
		}

		row := moltypes.GraphRow{SMILES: field(rec, smilesIdx)}
		if labelIdx >= 0 {
			if cell := field(rec, labelIdx); cell != "" {
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, readError(fmt.Sprintf("line %d: label %q is not a number", line, cell))
				}
				if err := moltypes.CheckLabel(v); err != nil {
					return nil, readError(fmt.Sprintf("line %d: label %q is not a finite float32", line, cell))
				}
				row.Label = &v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readError(detail string) error {
	return errors.New(errors.ErrCodeDatasetReadFailed, "failed to read dataset").WithDetail(detail)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
