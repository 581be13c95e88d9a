package recommender

import (
	"fmt"
	"sort"

	"glucomeal/internal/classifier"
	"glucomeal/internal/dataset"
)

// Names of the encoded dimensions, in vector order.
const (
	ColumnSugar = dataset.ColumnSugar
	ColumnBMI   = dataset.ColumnBMI
	ColumnDiet  = dataset.ColumnDiet
)

// Vector is a row encoded as (sugar, BMI, diet) codes.
type Vector [3]int

// EncodingError is returned when a label has no code because the reference
// table the codes were fit on never contains it.
type EncodingError struct {
	Column string
	Label  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: label %q not present in reference table", e.Column, e.Label)
}

// labelCodes numbers the distinct labels of one column.
type labelCodes struct {
	column string
	codes  map[string]int
	labels []string
}

// fitLabels assigns codes by sorting the distinct labels lexicographically
// (byte order) and numbering them from 0. The numbering therefore depends
// only on which labels are present, never on row order.
func fitLabels(column string, values []string) labelCodes {
	seen := make(map[string]struct{}, len(values))
	var labels []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		labels = append(labels, v)
	}
	sort.Strings(labels)

	codes := make(map[string]int, len(labels))
	for i, l := range labels {
		codes[l] = i
	}
	return labelCodes{column: column, codes: codes, labels: labels}
}

func (lc labelCodes) encode(label string) (int, error) {
	code, ok := lc.codes[label]
	if !ok {
		return 0, &EncodingError{Column: lc.column, Label: label}
	}
	return code, nil
}

// CategoryCodes holds the per-column code mappings fit on one reference
// table. It is immutable once built; the same value must encode both the
// table and every profile compared against it.
type CategoryCodes struct {
	sugar labelCodes
	bmi   labelCodes
	diet  labelCodes
}

// FitCodes builds the code mappings from the distinct labels in t.
func FitCodes(t dataset.Table) CategoryCodes {
	n := t.Len()
	sugar := make([]string, 0, n)
	bmi := make([]string, 0, n)
	diet := make([]string, 0, n)
	for i := 0; i < n; i++ {
		r := t.At(i)
		sugar = append(sugar, string(r.SugarCategory))
		bmi = append(bmi, string(r.BMICategory))
		diet = append(diet, string(r.DietType))
	}

	return CategoryCodes{
		sugar: fitLabels(ColumnSugar, sugar),
		bmi:   fitLabels(ColumnBMI, bmi),
		diet:  fitLabels(ColumnDiet, diet),
	}
}

// Labels returns the labels of column in code order, or nil for an unknown column.
func (c CategoryCodes) Labels(column string) []string {
	var lc labelCodes
	switch column {
	case ColumnSugar:
		lc = c.sugar
	case ColumnBMI:
		lc = c.bmi
	case ColumnDiet:
		lc = c.diet
	default:
		return nil
	}
	out := make([]string, len(lc.labels))
	copy(out, lc.labels)
	return out
}

func (c CategoryCodes) encode(sugar, bmi, diet string) (Vector, error) {
	var v Vector
	var err error
	if v[0], err = c.sugar.encode(sugar); err != nil {
		return Vector{}, err
	}
	if v[1], err = c.bmi.encode(bmi); err != nil {
		return Vector{}, err
	}
	if v[2], err = c.diet.encode(diet); err != nil {
		return Vector{}, err
	}
	return v, nil
}

// EncodeTable encodes every row of t, in table order. It fails only when t
// holds labels these codes were not fit on.
func (c CategoryCodes) EncodeTable(t dataset.Table) ([]Vector, error) {
	out := make([]Vector, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		v, err := c.encode(string(r.SugarCategory), string(r.BMICategory), string(r.DietType))
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i, r.Food, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeProfile encodes a classified profile.
func (c CategoryCodes) EncodeProfile(p classifier.Profile) (Vector, error) {
	return c.encode(string(p.Sugar), string(p.BMI), string(p.Diet))
}
