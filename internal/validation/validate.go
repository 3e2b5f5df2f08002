package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/avi5049/cardio-risk/internal/domain"
)

// wireInput mirrors the request body. Pointers distinguish missing from zero.
type wireInput struct {
	Gender      *domain.Gender `json:"gender" validate:"required"`
	Height      *float64       `json:"height" validate:"required,gte=120,lte=220"`
	Weight      *float64       `json:"weight" validate:"required,gte=30,lte=200"`
	APHi        *int           `json:"ap_hi" validate:"required,gte=80,lte=250"`
	APLo        *int           `json:"ap_lo" validate:"required,gte=40,lte=150"`
	Cholesterol *int           `json:"cholesterol" validate:"required,oneof=1 2 3"`
	Gluc        *int           `json:"gluc" validate:"required,oneof=1 2 3"`
	Smoke       *domain.Flag   `json:"smoke" validate:"required"`
	Alco        *domain.Flag   `json:"alco" validate:"required"`
	Active      *domain.Flag   `json:"active" validate:"required"`
	AgeInYr     *int           `json:"ageInYr" validate:"required,gte=18,lte=100"`
}

// ClientDerived holds the derived values a caller may pre-compute for display.
// They are reported back for comparison only and never reach the model.
type ClientDerived struct {
	BMI          *float64
	Hypertension *float64
	Obese        *float64
	AgeGroup     *float64
}

// Request is a parsed and validated assessment request.
type Request struct {
	Input  domain.RawInput
	Client ClientDerived
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate returns the normalized input or a *domain.ValidationError listing
// every offending field.
func Validate(body []byte) (domain.RawInput, error) {
	req, err := Parse(body)
	if err != nil {
		return domain.RawInput{}, err
	}
	return req.Input, nil
}

// Parse is Validate plus the untrusted client-derived values.
func Parse(body []byte) (Request, error) {
	raw, err := decodeObject(body)
	if err != nil {
		return Request{}, err
	}

	var (
		w      wireInput
		failed = make(map[string]string)
	)
	for _, f := range wireFields(&w) {
		msg, ok := raw[f.name]
		if !ok || isNull(msg) {
			continue // reported as required below
		}
		if err := json.Unmarshal(msg, f.dst); err != nil {
			failed[f.name] = typeReason(err, f.kind)
		}
	}

	if err := validate.Struct(&w); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Request{}, &domain.InternalError{Err: fmt.Errorf("validate input: %w", err)}
		}
		for _, fe := range verrs {
			if _, seen := failed[fe.Field()]; seen {
				continue
			}
			failed[fe.Field()] = ruleReason(fe)
		}
	}

	if len(failed) > 0 {
		verr := &domain.ValidationError{}
		for _, name := range fieldOrder {
			if reason, ok := failed[name]; ok {
				verr.Fields = append(verr.Fields, domain.FieldError{Field: name, Reason: reason})
			}
		}
		return Request{}, verr
	}

	return Request{Input: w.normalize(), Client: clientDerived(raw)}, nil
}

func (w *wireInput) normalize() domain.RawInput {
	return domain.RawInput{
		Gender:      *w.Gender,
		HeightCM:    *w.Height,
		WeightKG:    *w.Weight,
		AgeYears:    *w.AgeInYr,
		SystolicBP:  *w.APHi,
		DiastolicBP: *w.APLo,
		Cholesterol: domain.Level(*w.Cholesterol),
		Glucose:     domain.Level(*w.Gluc),
		Smoker:      bool(*w.Smoke),
		Alcohol:     bool(*w.Alco),
		Active:      bool(*w.Active),
	}
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, malformed("request body is empty")
	}
	if trimmed[0] != '{' {
		return nil, malformed("request body must be a JSON object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, malformed("request body is not valid JSON")
	}
	return raw, nil
}

func malformed(reason string) error {
	return &domain.ValidationError{
		Malformed: true,
		Fields:    []domain.FieldError{{Field: "body", Reason: reason}},
	}
}

func isNull(msg json.RawMessage) bool {
	return string(bytes.TrimSpace(msg)) == "null"
}

func clientDerived(raw map[string]json.RawMessage) ClientDerived {
	num := func(key string) *float64 {
		msg, ok := raw[key]
		if !ok {
			return nil
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil
		}
		return &v
	}
	return ClientDerived{
		BMI:          num("bmi"),
		Hypertension: num("hypertension"),
		Obese:        num("obese"),
		AgeGroup:     num("age_group"),
	}
}
