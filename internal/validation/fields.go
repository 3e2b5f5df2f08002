package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindInteger
	kindEnum
)

type wireField struct {
	name string
	dst  any
	kind fieldKind
}

// fieldOrder is the wire order used when reporting errors.
var fieldOrder = []string{
	"gender", "height", "weight", "ap_hi", "ap_lo",
	"cholesterol", "gluc", "smoke", "alco", "active", "ageInYr",
}

func wireFields(w *wireInput) []wireField {
	return []wireField{
		{"gender", &w.Gender, kindEnum},
		{"height", &w.Height, kindNumber},
		{"weight", &w.Weight, kindNumber},
		{"ap_hi", &w.APHi, kindInteger},
		{"ap_lo", &w.APLo, kindInteger},
		{"cholesterol", &w.Cholesterol, kindInteger},
		{"gluc", &w.Gluc, kindInteger},
		{"smoke", &w.Smoke, kindEnum},
		{"alco", &w.Alco, kindEnum},
		{"active", &w.Active, kindEnum},
		{"ageInYr", &w.AgeInYr, kindInteger},
	}
}

func typeReason(err error, kind fieldKind) string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case kind == kindNumber:
		return "must be a number"
	case kind == kindInteger:
		return "must be an integer"
	case errors.As(err, &typeErr):
		return "has the wrong type"
	default:
		return err.Error()
	}
}

func ruleReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
