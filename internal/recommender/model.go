package recommender

import (
	"errors"
	"math"
	"sort"

	"glucomeal/internal/classifier"
	"glucomeal/internal/dataset"
)

// DefaultNeighbors is the number of foods the model-based path returns.
const DefaultNeighbors = 5

// MatchRules returns the rows whose BMI category, sugar category and diet
// type all equal p's, in table order. An empty result is a normal outcome.
func MatchRules(t dataset.Table, p classifier.Profile) []dataset.FoodRecord {
	var out []dataset.FoodRecord
	for i := 0; i < t.Len(); i++ {
		if r := t.At(i); r.Matches(p) {
			out = append(out, r)
		}
	}
	return out
}

// Model is a nearest-neighbour index over the encoded reference table.
//
// Categories are compared as plain integers, so two labels are "close" only
// when their codes happen to be adjacent in sort order (Obese=1 sits next to
// Normal=0, not Overweight=2). Results depend on that numbering and it is
// kept as is.
type Model struct {
	table   dataset.Table
	codes   CategoryCodes
	vectors []Vector
	k       int
}

// Neighbor is a reference row together with its distance to the query.
type Neighbor struct {
	Record   dataset.FoodRecord `json:"record"`
	Index    int                `json:"index"`
	Distance float64            `json:"distance"`
}

// NewModel fits codes on t and encodes every row once. k below 1 means
// DefaultNeighbors.
func NewModel(t dataset.Table, k int) (*Model, error) {
	if t.Len() == 0 {
		return nil, errors.New("cannot build model from an empty table")
	}
	if k < 1 {
		k = DefaultNeighbors
	}

	codes := FitCodes(t)
	vectors, err := codes.EncodeTable(t)
	if err != nil {
		return nil, err
	}

	return &Model{table: t, codes: codes, vectors: vectors, k: k}, nil
}

// Codes returns the mappings the model was fit with.
func (m *Model) Codes() CategoryCodes { return m.codes }

// K returns the configured neighbour count.
func (m *Model) K() int { return m.k }

// Nearest returns the min(k, rows) rows closest to p by Euclidean distance
// over the codes. Equal distances keep table order.
func (m *Model) Nearest(p classifier.Profile) ([]Neighbor, error) {
	q, err := m.codes.EncodeProfile(p)
	if err != nil {
		return nil, err
	}

	all := make([]Neighbor, len(m.vectors))
	for i, v := range m.vectors {
		all[i] = Neighbor{Record: m.table.At(i), Index: i, Distance: euclidean(q, v)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })

	if len(all) > m.k {
		all = all[:m.k]
	}
	return all, nil
}

// Recommend is Nearest without the distances.
func (m *Model) Recommend(p classifier.Profile) ([]dataset.FoodRecord, error) {
	nn, err := m.Nearest(p)
	if err != nil {
		return nil, err
	}
	out := make([]dataset.FoodRecord, len(nn))
	for i, n := range nn {
		out[i] = n.Record
	}
	return out, nil
}

func euclidean(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
