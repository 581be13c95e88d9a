package dataset

import "glucomeal/internal/classifier"

// FoodRecord is one row of the food reference table.
type FoodRecord struct {
	Food          string                   `json:"food"`
	Calories      float64                  `json:"calories"`
	SugarCategory classifier.SugarCategory `json:"sugar_level_category"`
	BMICategory   classifier.BMICategory   `json:"bmi_category"`
	DietType      classifier.DietType      `json:"diet_type"`
}

// Matches reports whether the record carries exactly the classified profile's labels.
func (r FoodRecord) Matches(p classifier.Profile) bool {
	return r.BMICategory == p.BMI && r.SugarCategory == p.Sugar && r.DietType == p.Diet
}

// Table is the immutable, ordered reference table. It is safe to share
// between goroutines because nothing mutates it after construction.
type Table struct {
	rows []FoodRecord
}

// NewTable copies rows into a new Table.
func NewTable(rows []FoodRecord) Table {
	cp := make([]FoodRecord, len(rows))
	copy(cp, rows)
	return Table{rows: cp}
}

func (t Table) Len() int { return len(t.rows) }

func (t Table) At(i int) FoodRecord { return t.rows[i] }

// Rows returns a copy of every record in table order.
func (t Table) Rows() []FoodRecord {
	cp := make([]FoodRecord, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// TotalCalories sums the calories of recs.
func TotalCalories(recs []FoodRecord) float64 {
	var total float64
	for _, r := range recs {
		total += r.Calories
	}
	return total
}
