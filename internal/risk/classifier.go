package risk

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/avi5049/cardio-risk/internal/domain"
	"github.com/avi5049/cardio-risk/internal/features"
	"github.com/avi5049/cardio-risk/internal/telemetry"
	"github.com/avi5049/cardio-risk/internal/validation"
)

// Predictor is satisfied by *model.Adapter.
type Predictor interface {
	Predict(ctx context.Context, v domain.FeatureVector) (domain.Prediction, error)
}

// Classifier runs derive -> vector -> model -> tier. It holds no per-request
// state and is safe for concurrent use.
type Classifier struct {
	model Predictor
}

func NewClassifier(model Predictor) *Classifier {
	return &Classifier{model: model}
}

// AssessRaw validates a request body and assesses it. The client-derived
// values are returned for comparison only.
func (c *Classifier) AssessRaw(ctx context.Context, body []byte) (domain.AssessmentResult, validation.ClientDerived, error) {
	req, err := validation.Parse(body)
	if err != nil {
		return domain.AssessmentResult{}, validation.ClientDerived{}, err
	}
	res, err := c.Assess(ctx, req.Input)
	if err != nil {
		return domain.AssessmentResult{}, validation.ClientDerived{}, err
	}
	return res, req.Client, nil
}

// Assess scores validated input. Recommendations are left empty.
// Errors from the model are returned unchanged.
func (c *Classifier) Assess(ctx context.Context, in domain.RawInput) (domain.AssessmentResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "risk.assess")
	defer span.End()

	derived := features.Derive(in)
	vec := features.Vector(in, derived)
	slog.DebugContext(ctx, "feature vector", "features", vec.Named())

	pred, err := c.model.Predict(ctx, vec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prediction failed")
		return domain.AssessmentResult{}, err
	}

	tier := domain.TierFor(pred.Label)
	span.SetAttributes(
		attribute.String("risk.tier", string(tier)),
		attribute.Float64("risk.probability", pred.Probability),
		attribute.String("model.version", pred.Version),
	)

	return domain.AssessmentResult{
		Prediction:   pred.Label,
		Probability:  pred.Probability,
		RiskTier:     tier,
		Input:        in,
		Derived:      derived,
		ModelVersion: pred.Version,
	}, nil
}
