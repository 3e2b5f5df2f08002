package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Gender is the encoded sex the model was trained on.
type Gender int

const (
	GenderFemale Gender = 0
	GenderMale   Gender = 1
)

func (g Gender) String() string {
	if g == GenderMale {
		return "male"
	}
	return "female"
}

// UnmarshalJSON accepts 0/1 as well as "female"/"male".
func (g *Gender) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		switch n.String() {
		case "0":
			*g = GenderFemale
			return nil
		case "1":
			*g = GenderMale
			return nil
		}
		return fmt.Errorf("must be 0 or 1")
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("must be 0, 1, \"female\" or \"male\"")
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female":
		*g = GenderFemale
	case "male":
		*g = GenderMale
	default:
		return fmt.Errorf("must be 0, 1, \"female\" or \"male\"")
	}
	return nil
}

// Flag is a 0/1 wire boolean. true/false are accepted too.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		return fmt.Errorf("must be 0 or 1")
	}
	return nil
}

// Level is the 1..3 ordinal scale used for cholesterol and glucose.
type Level int

const (
	LevelNormal          Level = 1
	LevelAboveNormal     Level = 2
	LevelWellAboveNormal Level = 3
)

// RawInput is a validated assessment request.
type RawInput struct {
	Gender      Gender
	HeightCM    float64
	WeightKG    float64
	AgeYears    int
	SystolicBP  int
	DiastolicBP int
	Cholesterol Level
	Glucose     Level
	Smoker      bool
	Alcohol     bool
	Active      bool
}

// DerivedFeatures are computed server side from RawInput and never taken from the caller.
type DerivedFeatures struct {
	BMI          float64
	Hypertension bool
	Obese        bool
	AgeGroup     int
}

// RiskTier is the coarse label shown to the user.
type RiskTier string

const (
	RiskLow  RiskTier = "low"
	RiskHigh RiskTier = "high"
)

// Label returns the display string for the tier.
func (t RiskTier) Label() string {
	if t == RiskHigh {
		return "High Risk"
	}
	return "Low Risk"
}

// TierFor maps a model label to a tier.
func TierFor(label int) RiskTier {
	if label == 1 {
		return RiskHigh
	}
	return RiskLow
}

// Prediction is what the model adapter returns.
type Prediction struct {
	Probability float64
	Label       int
	Version     string
}

// Recommendation is a single piece of advice.
type Recommendation struct {
	Icon     string `json:"icon"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// AssessmentResult is assembled once per request and never persisted.
type AssessmentResult struct {
	Prediction      int
	Probability     float64
	RiskTier        RiskTier
	Recommendations []Recommendation
	Input           RawInput
	Derived         DerivedFeatures
	ModelVersion    string
}
