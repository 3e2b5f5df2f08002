package recommend

import (
	"github.com/avi5049/cardio-risk/internal/domain"
)

// Rule kinds.
const (
	KindRisk     = "risk"     // a primary risk factor; suppresses the fallbacks
	KindInfo     = "info"     // advisory only, never suppresses a fallback
	KindFallback = "fallback" // fires only when no risk rule matched
)

// Facts is everything a rule may look at.
type Facts struct {
	Input   domain.RawInput
	Derived domain.DerivedFeatures
	Tier    domain.RiskTier
}

type Rule struct {
	ID       string           `json:"id"`
	Kind     string           `json:"kind"`
	Category string           `json:"category"`
	Icon     string           `json:"icon"`
	Text     string           `json:"text"`
	Match    func(Facts) bool `json:"-"`
}

// Order is significant: recommendations are emitted in table order.
var ruleDB = []Rule{
	{
		ID: "blood-pressure", Kind: KindRisk, Category: "Blood Pressure", Icon: "🩺",
		Text:  "Your blood pressure is elevated. Monitor it regularly and consult a healthcare provider.",
		Match: func(f Facts) bool { return f.Derived.Hypertension },
	},
	{
		ID: "obesity", Kind: KindRisk, Category: "Weight Management", Icon: "⚖️",
		Text:  "Your BMI indicates obesity. A balanced diet and regular exercise can help manage weight.",
		Match: func(f Facts) bool { return f.Derived.Obese },
	},
	{
		ID: "overweight", Kind: KindInfo, Category: "Weight Management", Icon: "⚖️",
		Text:  "Your BMI indicates you are overweight. Small lifestyle changes can make a difference.",
		Match: func(f Facts) bool { return f.Derived.BMI >= 25 && !f.Derived.Obese },
	},
	{
		ID: "smoking", Kind: KindRisk, Category: "Smoking Cessation", Icon: "🚭",
		Text:  "Smoking significantly increases cardiovascular risk. Consider a cessation program.",
		Match: func(f Facts) bool { return f.Input.Smoker },
	},
	{
		ID: "alcohol", Kind: KindInfo, Category: "Alcohol", Icon: "🍷",
		Text:  "Alcohol intake affects heart health. Keep consumption moderate.",
		Match: func(f Facts) bool { return f.Input.Alcohol },
	},
	{
		ID: "cholesterol", Kind: KindRisk, Category: "Cholesterol", Icon: "🫀",
		Text:  "Elevated cholesterol detected. Prefer a heart-healthy diet low in saturated fats.",
		Match: func(f Facts) bool { return f.Input.Cholesterol >= domain.LevelAboveNormal },
	},
	{
		ID: "glucose", Kind: KindRisk, Category: "Blood Sugar", Icon: "🍬",
		Text:  "Elevated glucose detected. Monitor sugar intake and consider regular testing.",
		Match: func(f Facts) bool { return f.Input.Glucose >= domain.LevelAboveNormal },
	},
	{
		ID: "inactivity", Kind: KindRisk, Category: "Physical Activity", Icon: "🏃",
		Text:  "Aim for at least 150 minutes of moderate exercise weekly.",
		Match: func(f Facts) bool { return !f.Input.Active },
	},
	{
		ID: "screening", Kind: KindInfo, Category: "Regular Checkups", Icon: "📋",
		Text:  "Regular cardiovascular screenings are recommended for adults over 50.",
		Match: func(f Facts) bool { return f.Input.AgeYears >= 50 },
	},
	{
		ID: "general", Kind: KindFallback, Category: "General", Icon: "👨‍⚕️",
		Text:  "Your estimated risk is high. Schedule a consultation with a clinician.",
		Match: func(f Facts) bool { return f.Tier == domain.RiskHigh },
	},
	{
		ID: "maintain", Kind: KindFallback, Category: "Maintain Health", Icon: "✅",
		Text:  "Your risk appears low. Keep maintaining a healthy lifestyle.",
		Match: func(f Facts) bool { return f.Tier == domain.RiskLow },
	},
}

// Rules returns a copy of the rule table.
func Rules() []Rule {
	out := make([]Rule, len(ruleDB))
	copy(out, ruleDB)
	return out
}

// Matched returns the IDs of every rule that fires, in table order.
func Matched(in domain.RawInput, d domain.DerivedFeatures, tier domain.RiskTier) []string {
	ids := []string{}
	for _, rule := range evaluate(Facts{Input: in, Derived: d, Tier: tier}) {
		ids = append(ids, rule.ID)
	}
	return ids
}

// Recommend maps the assessed facts to an ordered list of recommendations.
func Recommend(in domain.RawInput, d domain.DerivedFeatures, tier domain.RiskTier) []domain.Recommendation {
	rules := evaluate(Facts{Input: in, Derived: d, Tier: tier})
	recs := make([]domain.Recommendation, 0, len(rules))
	for _, rule := range rules {
		recs = append(recs, domain.Recommendation{
			Icon:     rule.Icon,
			Category: rule.Category,
			Text:     rule.Text,
		})
	}
	return recs
}

func evaluate(f Facts) []Rule {
	matched := make([]Rule, 0, 4)
	riskFactor := false
	for _, rule := range ruleDB {
		if rule.Kind == KindFallback {
			continue
		}
		if rule.Match(f) {
			matched = append(matched, rule)
			if rule.Kind == KindRisk {
				riskFactor = true
			}
		}
	}
	if riskFactor {
		return matched
	}
	for _, rule := range ruleDB {
		if rule.Kind == KindFallback && rule.Match(f) {
			matched = append(matched, rule)
		}
	}
	return matched
}
