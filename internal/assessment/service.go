package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/avi5049/cardio-risk/internal/domain"
	"github.com/avi5049/cardio-risk/internal/features"
	"github.com/avi5049/cardio-risk/internal/recommend"
	"github.com/avi5049/cardio-risk/internal/telemetry"
	"github.com/avi5049/cardio-risk/internal/validation"
)

// Assessor is satisfied by *risk.Classifier.
type Assessor interface {
	AssessRaw(ctx context.Context, body []byte) (domain.AssessmentResult, validation.ClientDerived, error)
}

// Service turns a request body into a wire response. It is the only place
// where errors are translated to the wire contract.
type Service struct {
	assessor    Assessor
	assessments metric.Int64Counter
}

func NewService(assessor Assessor, inst telemetry.Instruments) *Service {
	return &Service{assessor: assessor, assessments: inst.Assessments}
}

// Handle returns the HTTP status and the payload to serialize. The payload
// is either a *Response or an *ErrorResponse, never a mix.
func (s *Service) Handle(ctx context.Context, body []byte) (status int, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "assessment panicked", "panic", r, "stack", string(debug.Stack()))
			status, payload = s.fail(ctx, &domain.InternalError{Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	res, client, err := s.assessor.AssessRaw(ctx, body)
	if err != nil {
		return s.fail(ctx, err)
	}

	res.Recommendations = recommend.Recommend(res.Input, res.Derived, res.RiskTier)
	compareClientDerived(ctx, client, res.Derived)

	s.count(ctx, "ok")
	slog.InfoContext(ctx, "assessment completed",
		"tier", res.RiskTier,
		"probability", res.Probability,
		"recommendations", len(res.Recommendations),
		"model_version", res.ModelVersion,
	)
	return http.StatusOK, newResponse(res)
}

// RejectBody maps a failure to read the request body. An oversized body is
// 413, anything else 400.
func (s *Service) RejectBody(ctx context.Context, err error) (int, any) {
	s.count(ctx, "invalid")
	slog.InfoContext(ctx, "request body rejected", "error", err)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, newError(domain.KindValidation,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
	}
	return http.StatusBadRequest, newError(domain.KindValidation, "unable to read request body", nil)
}

func (s *Service) fail(ctx context.Context, err error) (int, *ErrorResponse) {
	var (
		verr  *domain.ValidationError
		mverr *domain.ModelUnavailableError
	)
	switch {
	case errors.As(err, &verr):
		s.count(ctx, "invalid")
		status := http.StatusUnprocessableEntity
		msg := "input validation failed"
		if verr.Malformed {
			status = http.StatusBadRequest
			msg = "request body must be a JSON object"
		}
		slog.InfoContext(ctx, "assessment rejected", "error", err)
		return status, newError(domain.KindValidation, msg, verr.Fields)
	case errors.As(err, &mverr):
		s.count(ctx, "unavailable")
		slog.ErrorContext(ctx, "model unavailable", "error", err)
		return http.StatusServiceUnavailable, newError(domain.KindModelUnavailable, "risk model is unavailable: "+mverr.Reason, nil)
	default:
		s.count(ctx, "error")
		slog.ErrorContext(ctx, "assessment failed", "error", err)
		return http.StatusInternalServerError, newError(domain.KindInternal, "internal error", nil)
	}
}

func (s *Service) count(ctx context.Context, outcome string) {
	if s.assessments == nil {
		return
	}
	s.assessments.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// compareClientDerived logs when caller-computed values disagree with ours.
// The caller's values are never used for scoring.
func compareClientDerived(ctx context.Context, c validation.ClientDerived, d domain.DerivedFeatures) {
	var mismatched []any
	if c.BMI != nil && math.Abs(*c.BMI-d.BMI) > 0.1 {
		mismatched = append(mismatched, "bmi", fmt.Sprintf("client=%.2f server=%.2f", *c.BMI, d.BMI))
	}
	if c.Hypertension != nil && *c.Hypertension != boolf(d.Hypertension) {
		mismatched = append(mismatched, "hypertension", fmt.Sprintf("client=%v server=%v", *c.Hypertension, d.Hypertension))
	}
	if c.Obese != nil && *c.Obese != boolf(d.Obese) {
		mismatched = append(mismatched, "obese", fmt.Sprintf("client=%v server=%v", *c.Obese, d.Obese))
	}
	if c.AgeGroup != nil && int(*c.AgeGroup) != d.AgeGroup {
		mismatched = append(mismatched, "age_group", fmt.Sprintf("client=%v server=%d", *c.AgeGroup, d.AgeGroup))
	}
	if len(mismatched) > 0 {
		slog.WarnContext(ctx, "client derived features disagree with server", mismatched...)
	}
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Response is the success payload.
type Response struct {
	Prediction      int                     `json:"prediction"`
	Probability     float64                 `json:"probability"`
	RiskLevel       string                  `json:"riskLevel"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	InputData       InputData               `json:"inputData"`
	ModelVersion    string                  `json:"modelVersion"`
}

// InputData echoes normalized input and server-computed features.
type InputData struct {
	Gender       int     `json:"gender"`
	Height       float64 `json:"height"`
	Weight       float64 `json:"weight"`
	APHi         int     `json:"ap_hi"`
	APLo         int     `json:"ap_lo"`
	Cholesterol  int     `json:"cholesterol"`
	Gluc         int     `json:"gluc"`
	Smoke        int     `json:"smoke"`
	Alco         int     `json:"alco"`
	Active       int     `json:"active"`
	AgeInYr      int     `json:"ageInYr"`
	BMI          float64 `json:"bmi"`
	Hypertension int     `json:"hypertension"`
	Obese        int     `json:"obese"`
	AgeGroup     int     `json:"age_group"`
}

// ErrorResponse is the failure payload.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string              `json:"kind"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func newError(kind, msg string, fields []domain.FieldError) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Kind: kind, Message: msg, Fields: fields}}
}

func newResponse(res domain.AssessmentResult) *Response {
	in, d := res.Input, res.Derived
	return &Response{
		Prediction:      res.Prediction,
		Probability:     features.RoundTo(res.Probability, 4),
		RiskLevel:       res.RiskTier.Label(),
		Recommendations: res.Recommendations,
		ModelVersion:    res.ModelVersion,
		InputData: InputData{
			Gender:       int(in.Gender),
			Height:       in.HeightCM,
			Weight:       in.WeightKG,
			APHi:         in.SystolicBP,
			APLo:         in.DiastolicBP,
			Cholesterol:  int(in.Cholesterol),
			Gluc:         int(in.Glucose),
			Smoke:        boolInt(in.Smoker),
			Alco:         boolInt(in.Alcohol),
			Active:       boolInt(in.Active),
			AgeInYr:      in.AgeYears,
			BMI:          features.DisplayBMI(d),
			Hypertension: boolInt(d.Hypertension),
			Obese:        boolInt(d.Obese),
			AgeGroup:     d.AgeGroup,
		},
	}
}
