package recommender

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"glucomeal/internal/classifier"
	"glucomeal/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allSugar = []classifier.SugarCategory{classifier.SugarControlled, classifier.SugarModerate, classifier.SugarHigh}
	allBMI   = []classifier.BMICategory{classifier.BMIUnderweight, classifier.BMINormal, classifier.BMIOverweight, classifier.BMIObese}
	allDiet  = []classifier.DietType{classifier.DietVeg, classifier.DietNonVeg}
)

func rec(name string, sugar classifier.SugarCategory, bmi classifier.BMICategory, diet classifier.DietType) dataset.FoodRecord {
	return dataset.FoodRecord{Food: name, Calories: 100, SugarCategory: sugar, BMICategory: bmi, DietType: diet}
}

// fullTable has exactly one row per (sugar, BMI, diet) combination.
func fullTable() dataset.Table {
	var rows []dataset.FoodRecord
	for _, s := range allSugar {
		for _, b := range allBMI {
			for _, d := range allDiet {
				rows = append(rows, rec(fmt.Sprintf("%s/%s/%s", s, b, d), s, b, d))
			}
		}
	}
	return dataset.NewTable(rows)
}

func names(recs []dataset.FoodRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Food
	}
	return out
}

func TestFitCodesLexicographic(t *testing.T) {
	codes := FitCodes(fullTable())

	assert.Equal(t, []string{"Controlled", "High", "Moderate"}, codes.Labels(ColumnSugar))
	assert.Equal(t, []string{"Normal", "Obese", "Overweight", "Underweight"}, codes.Labels(ColumnBMI))
	assert.Equal(t, []string{"Non-Veg", "Veg"}, codes.Labels(ColumnDiet))
	assert.Nil(t, codes.Labels("Calories"))

	v, err := codes.EncodeProfile(classifier.Profile{Sugar: classifier.SugarModerate, BMI: classifier.BMIUnderweight, Diet: classifier.DietVeg})
	require.NoError(t, err)
	assert.Equal(t, Vector{2, 3, 1}, v)
}

func TestFitCodesIgnoresRowOrder(t *testing.T) {
	rows := fullTable().Rows()
	reversed := make([]dataset.FoodRecord, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}

	a := FitCodes(dataset.NewTable(rows))
	b := FitCodes(dataset.NewTable(reversed))
	for _, col := range []string{ColumnSugar, ColumnBMI, ColumnDiet} {
		assert.Equal(t, a.Labels(col), b.Labels(col), col)
	}
}

func TestEncodeUnseenLabel(t *testing.T) {
	table := dataset.NewTable([]dataset.FoodRecord{
		rec("Oats", classifier.SugarControlled, classifier.BMINormal, classifier.DietVeg),
	})
	codes := FitCodes(table)

	_, err := codes.EncodeProfile(classifier.Profile{Sugar: classifier.SugarControlled, BMI: classifier.BMINormal, Diet: classifier.DietNonVeg})
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, ColumnDiet, encErr.Column)
	assert.Equal(t, "Non-Veg", encErr.Label)

	_, err = codes.EncodeProfile(classifier.Profile{Sugar: classifier.SugarHigh, BMI: classifier.BMINormal, Diet: classifier.DietVeg})
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, ColumnSugar, encErr.Column)

	other := dataset.NewTable([]dataset.FoodRecord{
		rec("Egg", classifier.SugarHigh, classifier.BMIObese, classifier.DietNonVeg),
	})
	_, err = codes.EncodeTable(other)
	assert.ErrorAs(t, err, &encErr)
}

func TestMatchRules(t *testing.T) {
	table := dataset.NewTable([]dataset.FoodRecord{
		rec("Oats Upma", classifier.SugarControlled, classifier.BMINormal, classifier.DietVeg),
		rec("Egg Bhurji", classifier.SugarControlled, classifier.BMINormal, classifier.DietNonVeg),
		rec("Ragi Dosa", classifier.SugarControlled, classifier.BMINormal, classifier.DietVeg),
		rec("Paneer Tikka", classifier.SugarModerate, classifier.BMINormal, classifier.DietVeg),
	})

	p := classifier.Classify(classifier.UserProfile{FastingBloodSugar: 95, BMI: 22.0, Diet: classifier.DietVeg})
	got := MatchRules(table, p)
	assert.Equal(t, []string{"Oats Upma", "Ragi Dosa"}, names(got))

	// Filtering an already filtered set changes nothing.
	again := MatchRules(dataset.NewTable(got), p)
	assert.Equal(t, got, again)

	none := MatchRules(table, classifier.Classify(classifier.UserProfile{FastingBloodSugar: 140, BMI: 32.0, Diet: classifier.DietNonVeg}))
	assert.Empty(t, none)
}

func TestModelNearestLimit(t *testing.T) {
	m, err := NewModel(fullTable(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultNeighbors, m.K())

	for _, s := range allSugar {
		for _, b := range allBMI {
			for _, d := range allDiet {
				got, err := m.Recommend(classifier.Profile{Sugar: s, BMI: b, Diet: d})
				require.NoError(t, err)
				assert.Len(t, got, DefaultNeighbors)
			}
		}
	}

	small := dataset.NewTable(fullTable().Rows()[:3])
	m, err = NewModel(small, DefaultNeighbors)
	require.NoError(t, err)
	got, err := m.Recommend(classifier.Profile{Sugar: classifier.SugarControlled, BMI: classifier.BMIUnderweight, Diet: classifier.DietVeg})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestModelAgreesWithRulesOnExactMatch(t *testing.T) {
	table := fullTable()
	m, err := NewModel(table, DefaultNeighbors)
	require.NoError(t, err)

	for _, s := range allSugar {
		for _, b := range allBMI {
			for _, d := range allDiet {
				p := classifier.Profile{Sugar: s, BMI: b, Diet: d}
				rules := MatchRules(table, p)
				require.Len(t, rules, 1)

				nn, err := m.Nearest(p)
				require.NoError(t, err)
				assert.Equal(t, rules[0], nn[0].Record)
				assert.Zero(t, nn[0].Distance)
			}
		}
	}
}

func TestModelTiesKeepTableOrder(t *testing.T) {
	table := dataset.NewTable([]dataset.FoodRecord{
		rec("A", classifier.SugarModerate, classifier.BMINormal, classifier.DietVeg),
		rec("B", classifier.SugarHigh, classifier.BMINormal, classifier.DietVeg),
		rec("C", classifier.SugarControlled, classifier.BMINormal, classifier.DietVeg),
		rec("D", classifier.SugarControlled, classifier.BMINormal, classifier.DietVeg),
	})
	m, err := NewModel(table, 3)
	require.NoError(t, err)

	nn, err := m.Nearest(classifier.Profile{Sugar: classifier.SugarHigh, BMI: classifier.BMINormal, Diet: classifier.DietVeg})
	require.NoError(t, err)
	require.Len(t, nn, 3)

	assert.Equal(t, "B", nn[0].Record.Food)
	assert.Equal(t, "A", nn[1].Record.Food)
	assert.Equal(t, "C", nn[2].Record.Food)
	assert.Equal(t, []int{1, 0, 2}, []int{nn[0].Index, nn[1].Index, nn[2].Index})
	assert.Equal(t, 1.0, nn[1].Distance)
}

func TestNewModelEmptyTable(t *testing.T) {
	_, err := NewModel(dataset.NewTable(nil), DefaultNeighbors)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeRule, m)

	m, err = ParseMode("model")
	require.NoError(t, err)
	assert.Equal(t, ModeModel, m)

	_, err = ParseMode("ml")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestServiceRecommend(t *testing.T) {
	rows := fullTable().Rows()
	// Drop the only High/Obese/Non-Veg row so the rule path comes back empty.
	var partial []dataset.FoodRecord
	for _, r := range rows {
		if r.SugarCategory == classifier.SugarHigh && r.BMICategory == classifier.BMIObese && r.DietType == classifier.DietNonVeg {
			continue
		}
		partial = append(partial, r)
	}

	svc, err := New(dataset.NewTable(partial), WithCacheSize(4))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := svc.Recommend(ctx, classifier.UserProfile{FastingBloodSugar: 95, BMI: 22, Diet: classifier.DietVeg, CalorieTarget: 1800}, ModeRule)
	require.NoError(t, err)
	assert.Equal(t, classifier.SugarControlled, res.Profile.Sugar)
	assert.Equal(t, classifier.BMINormal, res.Profile.BMI)
	assert.Equal(t, []string{"Controlled/Normal/Veg"}, names(res.Foods))
	assert.False(t, res.NoMatch)
	assert.Equal(t, 100.0, res.TotalCalories)
	assert.Equal(t, 1800.0, res.CalorieTarget)

	res, err = svc.Recommend(ctx, classifier.UserProfile{FastingBloodSugar: 140, BMI: 32, Diet: classifier.DietNonVeg}, ModeRule)
	require.NoError(t, err)
	assert.True(t, res.NoMatch)
	assert.NotNil(t, res.Foods)
	assert.Empty(t, res.Foods)

	res, err = svc.Recommend(ctx, classifier.UserProfile{FastingBloodSugar: 140, BMI: 32, Diet: classifier.DietNonVeg}, ModeModel)
	require.NoError(t, err)
	assert.Len(t, res.Foods, DefaultNeighbors)
	assert.False(t, res.NoMatch)

	_, err = svc.Recommend(ctx, classifier.UserProfile{}, Mode("fuzzy"))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestServiceCacheReturnsCopies(t *testing.T) {
	svc, err := New(fullTable())
	require.NoError(t, err)
	u := classifier.UserProfile{FastingBloodSugar: 110, BMI: 27, Diet: classifier.DietVeg}

	first, err := svc.Recommend(context.Background(), u, ModeModel)
	require.NoError(t, err)
	first.Foods[0].Food = "tampered"

	second, err := svc.Recommend(context.Background(), u, ModeModel)
	require.NoError(t, err)
	assert.Equal(t, "Moderate/Overweight/Veg", second.Foods[0].Food)
}

func TestServiceModelEncodingError(t *testing.T) {
	table := dataset.NewTable([]dataset.FoodRecord{
		rec("Oats", classifier.SugarControlled, classifier.BMINormal, classifier.DietVeg),
	})
	svc, err := New(table)
	require.NoError(t, err)

	_, err = svc.Recommend(context.Background(), classifier.UserProfile{FastingBloodSugar: 90, BMI: 20, Diet: classifier.DietNonVeg}, ModeModel)
	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "Non-Veg", encErr.Label)

	// The rule path on the same input is simply empty.
	res, err := svc.Recommend(context.Background(), classifier.UserProfile{FastingBloodSugar: 90, BMI: 20, Diet: classifier.DietNonVeg}, ModeRule)
	require.NoError(t, err)
	assert.True(t, res.NoMatch)
}

func TestShippedDataset(t *testing.T) {
	table, err := dataset.Load("../../data/food_dataset.csv")
	require.NoError(t, err)

	// Every label the classifiers can produce has a code, so the model path never fails on it.
	codes := FitCodes(table)
	assert.Len(t, codes.Labels(ColumnSugar), len(allSugar))
	assert.Len(t, codes.Labels(ColumnBMI), len(allBMI))
	assert.Len(t, codes.Labels(ColumnDiet), len(allDiet))

	svc, err := New(table)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := svc.Recommend(ctx, classifier.UserProfile{FastingBloodSugar: 95, BMI: 22.0, Diet: classifier.DietVeg}, ModeRule)
	require.NoError(t, err)
	require.NotEmpty(t, res.Foods)
	for _, f := range res.Foods {
		assert.Equal(t, classifier.SugarControlled, f.SugarCategory)
		assert.Equal(t, classifier.BMINormal, f.BMICategory)
		assert.Equal(t, classifier.DietVeg, f.DietType)
	}

	res, err = svc.Recommend(ctx, classifier.UserProfile{FastingBloodSugar: 140, BMI: 32.0, Diet: classifier.DietNonVeg}, ModeRule)
	require.NoError(t, err)
	assert.True(t, res.NoMatch)

	res, err = svc.Recommend(ctx, classifier.UserProfile{FastingBloodSugar: 140, BMI: 32.0, Diet: classifier.DietNonVeg}, ModeModel)
	require.NoError(t, err)
	assert.Len(t, res.Foods, DefaultNeighbors)
}
