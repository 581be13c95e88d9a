/*
Package dataset holds the food reference table and loads it from its
delimited text form.
*/
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"glucomeal/internal/classifier"
)

// Column names of the reference file header.
const (
	ColumnFood     = "Food"
	ColumnCalories = "Calories"
	ColumnSugar    = "Sugar_Level_Category"
	ColumnBMI      = "BMI_Category"
	ColumnDiet     = "Diet_Type"
)

var requiredColumns = []string{ColumnFood, ColumnCalories, ColumnSugar, ColumnBMI, ColumnDiet}

// ErrEmptyTable is returned when the reference file has a header but no rows.
var ErrEmptyTable = errors.New("reference table has no rows")

// LoadError reports why the reference table could not be read.
// Line is 0 when the failure is not tied to a line of the file.
type LoadError struct {
	Path string
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	src := e.Path
	if src == "" {
		src = "reference table"
	}
	if e.Line > 0 {
		return fmt.Sprintf("load %s: line %d: %v", src, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", src, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads the reference table from a CSV file on disk.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return Table{}, err
	}
	return t, nil
}

// Parse reads a reference table from CSV. Columns are found by header name,
// so their order is free and extra columns are ignored.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, &LoadError{Line: 1, Err: errors.New("missing header")}
	}
	if err != nil {
		return Table{}, &LoadError{Line: 1, Err: err}
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		// Spreadsheet exports sometimes prepend a BOM to the first cell.
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		idx[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return Table{}, &LoadError{Line: 1, Err: fmt.Errorf("missing column %q", col)}
		}
	}

	var rows []FoodRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, &LoadError{Line: line, Err: err}
		}

		field := func(col string) (string, error) {
			i := idx[col]
			if i >= len(rec) {
				return "", fmt.Errorf("missing value for %q", col)
			}
			return strings.TrimSpace(rec[i]), nil
		}

		values := make(map[string]string, len(requiredColumns))
		for _, col := range requiredColumns {
			v, err := field(col)
			if err != nil {
				return Table{}, &LoadError{Line: line, Err: err}
			}
			values[col] = v
		}

		calories, err := strconv.ParseFloat(values[ColumnCalories], 64)
		if err != nil {
			return Table{}, &LoadError{Line: line, Err: fmt.Errorf("invalid calories %q: %w", values[ColumnCalories], err)}
		}

		rows = append(rows, FoodRecord{
			Food:          values[ColumnFood],
			Calories:      calories,
			SugarCategory: classifier.SugarCategory(values[ColumnSugar]),
			BMICategory:   classifier.BMICategory(values[ColumnBMI]),
			DietType:      classifier.DietType(values[ColumnDiet]),
		})
	}

	if len(rows) == 0 {
		return Table{}, &LoadError{Err: ErrEmptyTable}
	}
	return Table{rows: rows}, nil
}
