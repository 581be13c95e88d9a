/*
Package classifier maps raw health measurements onto the categorical
buckets used by the food reference table.
*/
package classifier

import "fmt"

// SugarCategory is the ordinal bucket for a fasting blood sugar reading.
type SugarCategory string

const (
	SugarControlled SugarCategory = "Controlled"
	SugarModerate   SugarCategory = "Moderate"
	SugarHigh       SugarCategory = "High"
)

// BMICategory is the ordinal weight bucket for a body-mass index.
type BMICategory string

const (
	BMIUnderweight BMICategory = "Underweight"
	BMINormal      BMICategory = "Normal"
	BMIOverweight  BMICategory = "Overweight"
	BMIObese       BMICategory = "Obese"
)

// DietType is the user's dietary preference, as labelled in the reference table.
type DietType string

const (
	DietVeg    DietType = "Veg"
	DietNonVeg DietType = "Non-Veg"
)

// Thresholds in mg/dL and kg/m².
const (
	sugarModerateFrom = 100.0
	sugarHighFrom     = 126.0

	bmiNormalFrom     = 18.5
	bmiOverweightFrom = 25.0
	bmiObeseFrom      = 30.0
)

// UserProfile is the raw input of a single submission.
type UserProfile struct {
	FastingBloodSugar float64  `json:"fbs"`
	BMI               float64  `json:"bmi"`
	Diet              DietType `json:"diet"`
	CalorieTarget     float64  `json:"calorie_target"`
}

// Profile is a UserProfile after classification.
type Profile struct {
	Sugar SugarCategory `json:"sugar_level_category"`
	BMI   BMICategory   `json:"bmi_category"`
	Diet  DietType      `json:"diet_type"`
}

// ClassifySugarLevel buckets a fasting blood sugar reading.
// Any number is accepted; out-of-range readings are not rejected or clamped.
func ClassifySugarLevel(fbs float64) SugarCategory {
	switch {
	case fbs < sugarModerateFrom:
		return SugarControlled
	case fbs < sugarHighFrom:
		return SugarModerate
	default:
		return SugarHigh
	}
}

// ClassifyBMI buckets a body-mass index. Like ClassifySugarLevel it is total:
// a negative BMI is Underweight.
func ClassifyBMI(bmi float64) BMICategory {
	switch {
	case bmi < bmiNormalFrom:
		return BMIUnderweight
	case bmi < bmiOverweightFrom:
		return BMINormal
	case bmi < bmiObeseFrom:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// Classify applies both classifiers and carries the diet preference through.
func Classify(u UserProfile) Profile {
	return Profile{
		Sugar: ClassifySugarLevel(u.FastingBloodSugar),
		BMI:   ClassifyBMI(u.BMI),
		Diet:  u.Diet,
	}
}

// ParseDietType accepts the two diet labels offered to users.
func ParseDietType(s string) (DietType, error) {
	switch d := DietType(s); d {
	case DietVeg, DietNonVeg:
		return d, nil
	default:
		return "", fmt.Errorf("invalid diet type '%s'. Must be '%s' or '%s'", s, DietVeg, DietNonVeg)
	}
}
