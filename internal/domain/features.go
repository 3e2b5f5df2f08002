package domain

// FeatureNames is the column order the classifier was trained on.
// Reordering it silently corrupts every prediction.
var FeatureNames = [NumFeatures]string{
	"gender",
	"height",
	"weight",
	"ap_hi",
	"ap_lo",
	"cholesterol",
	"gluc",
	"smoke",
	"alco",
	"active",
	"ageInYr",
	"bmi",
	"hypertension",
	"obese",
	"age_group",
}

const NumFeatures = 15

// FeatureVector is the encoded model input, indexed like FeatureNames.
type FeatureVector [NumFeatures]float64

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Named returns the vector keyed by column name, for logging.
func (v FeatureVector) Named() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}
