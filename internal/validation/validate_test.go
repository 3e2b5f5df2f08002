package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/avi5049/cardio-risk/internal/domain"
)

const validBody = `{
	"gender": 1, "height": 170, "weight": 70, "ap_hi": 120, "ap_lo": 80,
	"cholesterol": 1, "gluc": 1, "smoke": 0, "alco": 0, "active": 1, "ageInYr": 45
}`

func withField(key, value string) string {
	// replace the first occurrence of `"key": <value>` in validBody
	start := strings.Index(validBody, `"`+key+`":`)
	end := start + len(key) + 3
	for end < len(validBody) && validBody[end] == ' ' {
		end++
	}
	stop := end
	for stop < len(validBody) && validBody[stop] != ',' && validBody[stop] != '\n' {
		stop++
	}
	return validBody[:end] + value + validBody[stop:]
}

func validationErr(t *testing.T, err error) *domain.ValidationError {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *domain.ValidationError, got %T (%v)", err, err)
	}
	return verr
}

func TestValidateAcceptsValidInput(t *testing.T) {
	in, err := Validate([]byte(validBody))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.RawInput{
		Gender:      domain.GenderMale,
		HeightCM:    170,
		WeightKG:    70,
		AgeYears:    45,
		SystolicBP:  120,
		DiastolicBP: 80,
		Cholesterol: domain.LevelNormal,
		Glucose:     domain.LevelNormal,
		Active:      true,
	}
	if in != want {
		t.Fatalf("expected %+v, got %+v", want, in)
	}
}

func TestValidateRejectsOutOfRangeSystolic(t *testing.T) {
	_, err := Validate([]byte(withField("ap_hi", "300")))
	verr := validationErr(t, err)
	if !verr.Has("ap_hi") || len(verr.Fields) != 1 {
		t.Fatalf("expected single ap_hi error, got %+v", verr.Fields)
	}
	if !strings.Contains(verr.Fields[0].Reason, "250") {
		t.Fatalf("expected reason to mention the bound, got %q", verr.Fields[0].Reason)
	}
}

func TestValidateRejectsZeroHeight(t *testing.T) {
	_, err := Validate([]byte(withField("height", "0")))
	verr := validationErr(t, err)
	if !verr.Has("height") {
		t.Fatalf("expected height error, got %+v", verr.Fields)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	body := `{"gender": 2, "height": "tall", "weight": 70, "ap_hi": 120.5, "ap_lo": 80,
		"cholesterol": 4, "gluc": 1, "smoke": 3, "alco": 0, "active": 1}`
	_, err := Validate([]byte(body))
	verr := validationErr(t, err)

	want := []string{"gender", "height", "ap_hi", "cholesterol", "smoke", "ageInYr"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("expected %d errors, got %+v", len(want), verr.Fields)
	}
	for i, name := range want {
		if verr.Fields[i].Field != name {
			t.Errorf("error %d: expected field %s, got %s", i, name, verr.Fields[i].Field)
		}
	}
}

func TestValidateReasons(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"missing", strings.Replace(validBody, `"ageInYr": 45`, `"x": 1`, 1), "ageInYr", "is required"},
		{"null", withField("weight", "null"), "weight", "is required"},
		{"string number", withField("weight", `"70"`), "weight", "must be a number"},
		{"fractional int", withField("ap_lo", "80.5"), "ap_lo", "must be an integer"},
		{"enum", withField("gluc", "0"), "gluc", "must be one of 1, 2, 3"},
		{"flag", withField("active", "2"), "active", "must be 0 or 1"},
		{"below", withField("ageInYr", "17"), "ageInYr", "must be at least 18"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate([]byte(tc.body))
			verr := validationErr(t, err)
			if len(verr.Fields) != 1 || verr.Fields[0].Field != tc.field {
				t.Fatalf("expected single %s error, got %+v", tc.field, verr.Fields)
			}
			if verr.Fields[0].Reason != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, verr.Fields[0].Reason)
			}
		})
	}
}

func TestValidateMalformedBody(t *testing.T) {
	for _, body := range []string{"", "[1,2]", "{not json", "42"} {
		_, err := Validate([]byte(body))
		verr := validationErr(t, err)
		if !verr.Malformed || !verr.Has("body") {
			t.Errorf("body %q: expected malformed body error, got %+v", body, verr)
		}
	}
}

func TestValidateAcceptsAlternateEncodings(t *testing.T) {
	body := withField("gender", `"female"`)
	body = strings.Replace(body, `"smoke": 0`, `"smoke": true`, 1)
	in, err := Validate([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Gender != domain.GenderFemale || !in.Smoker {
		t.Fatalf("unexpected normalized input %+v", in)
	}
}

func TestParseKeepsClientDerivedSeparate(t *testing.T) {
	body := strings.Replace(validBody, `"ageInYr": 45`, `"ageInYr": 45, "bmi": 40, "obese": 1`, 1)
	req, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Client.BMI == nil || *req.Client.BMI != 40 {
		t.Fatalf("expected client bmi 40, got %v", req.Client.BMI)
	}
	if req.Client.Hypertension != nil {
		t.Fatal("expected no client hypertension value")
	}
}
