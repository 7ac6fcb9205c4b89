package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"kitstock-api/internal/model"
)

const (
	serialColumnPrefix = "serialNumber"
	batchColumnPrefix  = "batchNumber"
)

// ParseKitCSV reads kit rows from a header-first CSV document. Every column
// whose name starts with serialNumber feeds the kit's serial numbers in
// header order, every column starting with batchNumber feeds its batch
// numbers. Other columns, status included, are ignored: imported kits are
// always available since a row carries no order to sell against. Rows are
// not validated.
func ParseKitCSV(r io.Reader) ([]model.Kit, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []model.Kit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read csv header: %v", model.ErrInvalidInput, err)
	}

	var serialCols, batchCols []int
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case strings.HasPrefix(name, serialColumnPrefix):
			serialCols = append(serialCols, i)
		case strings.HasPrefix(name, batchColumnPrefix):
			batchCols = append(batchCols, i)
		}
	}

	kits := []model.Kit{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read csv row: %v", model.ErrInvalidInput, err)
		}
		kits = append(kits, *model.NewAvailableKit(pick(record, serialCols), pick(record, batchCols)))
	}
	return kits, nil
}

// pick returns the trimmed values of record at cols. Short rows yield
// nothing for the missing columns.
func pick(record []string, cols []int) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c < len(record) {
			out = append(out, strings.TrimSpace(record[c]))
		}
	}
	return out
}
