package features

import (
	"math"

	"github.com/avi5049/cardio-risk/internal/domain"
)

const (
	hypertensionSystolic  = 140
	hypertensionDiastolic = 90
	obesityBMI            = 30.0
)

// Derive computes the engineered features. Input must already be validated,
// which guarantees a height of at least 120 cm.
func Derive(in domain.RawInput) domain.DerivedFeatures {
	bmi := BMI(in.WeightKG, in.HeightCM)
	return domain.DerivedFeatures{
		BMI:          bmi,
		Hypertension: in.SystolicBP >= hypertensionSystolic || in.DiastolicBP >= hypertensionDiastolic,
		Obese:        bmi >= obesityBMI,
		AgeGroup:     AgeGroup(in.AgeYears),
	}
}

// BMI returns weight / height² with height in centimetres, unrounded.
func BMI(weightKG, heightCM float64) float64 {
	m := heightCM / 100
	return weightKG / (m * m)
}

// AgeGroup buckets age as <30, 30-44, 45-59, 60-74, 75+.
func AgeGroup(age int) int {
	switch {
	case age < 30:
		return 0
	case age < 45:
		return 1
	case age < 60:
		return 2
	case age < 75:
		return 3
	default:
		return 4
	}
}

// DisplayBMI is the one-decimal value shown to users. Never threshold on it.
func DisplayBMI(d domain.DerivedFeatures) float64 {
	return RoundTo(d.BMI, 1)
}

// RoundTo rounds a float to the given number of decimal places.
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// Vector encodes raw and derived values in domain.FeatureNames order.
func Vector(in domain.RawInput, d domain.DerivedFeatures) domain.FeatureVector {
	return domain.FeatureVector{
		float64(in.Gender),
		in.HeightCM,
		in.WeightKG,
		float64(in.SystolicBP),
		float64(in.DiastolicBP),
		float64(in.Cholesterol),
		float64(in.Glucose),
		boolf(in.Smoker),
		boolf(in.Alcohol),
		boolf(in.Active),
		float64(in.AgeYears),
		d.BMI,
		boolf(d.Hypertension),
		boolf(d.Obese),
		float64(d.AgeGroup),
	}
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
