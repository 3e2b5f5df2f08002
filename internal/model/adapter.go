package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/avi5049/cardio-risk/internal/domain"
	"github.com/avi5049/cardio-risk/internal/telemetry"
)

const defaultThreshold = 0.5

// Scorer returns the positive-class probability for one feature row.
type Scorer interface {
	Score(ctx context.Context, x []float64) (float64, error)
}

type thresholder interface {
	Threshold() float64
}

// snapshot is swapped as a whole; it is never mutated after Store.
type snapshot struct {
	scorer    Scorer
	version   string
	threshold float64
}

// Adapter owns the model reference shared by all requests.
type Adapter struct {
	current   atomic.Pointer[snapshot]
	timeout   time.Duration
	threshold float64
	latency   metric.Float64Histogram
}

// NewAdapter creates an adapter with no model loaded. A threshold of 0 means
// "use the artifact's threshold, or 0.5".
func NewAdapter(timeout time.Duration, threshold float64, inst telemetry.Instruments) *Adapter {
	return &Adapter{
		timeout:   timeout,
		threshold: threshold,
		latency:   inst.ModelLatency,
	}
}

// Swap atomically replaces the active model.
func (a *Adapter) Swap(s Scorer, version string) {
	th := defaultThreshold
	if t, ok := s.(thresholder); ok && t.Threshold() > 0 {
		th = t.Threshold()
	}
	if a.threshold > 0 {
		th = a.threshold
	}
	a.current.Store(&snapshot{scorer: s, version: version, threshold: th})
}

// Ready reports whether a model has been loaded.
func (a *Adapter) Ready() bool {
	return a.current.Load() != nil
}

// Version returns the active model version, or "" when none is loaded.
func (a *Adapter) Version() string {
	if s := a.current.Load(); s != nil {
		return s.version
	}
	return ""
}

type scoreResult struct {
	p   float64
	err error
}

// Predict scores a feature vector. Every failure is a *domain.ModelUnavailableError;
// there is no fallback prediction.
func (a *Adapter) Predict(ctx context.Context, v domain.FeatureVector) (domain.Prediction, error) {
	snap := a.current.Load()
	if snap == nil {
		return domain.Prediction{}, &domain.ModelUnavailableError{Reason: "model artifact is not loaded"}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan scoreResult, 1)
	go func() {
		p, err := snap.scorer.Score(ctx, v.Slice())
		done <- scoreResult{p: p, err: err}
	}()

	var res scoreResult
	select {
	case res = <-done:
	case <-ctx.Done():
		a.record(ctx, start, "timeout")
		return domain.Prediction{}, &domain.ModelUnavailableError{
			Reason: fmt.Sprintf("inference did not finish within %s", a.timeout),
			Err:    ctx.Err(),
		}
	}

	if res.err != nil {
		outcome := "error"
		if errors.Is(res.err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		a.record(ctx, start, outcome)
		return domain.Prediction{}, &domain.ModelUnavailableError{Reason: "inference failed", Err: res.err}
	}
	if math.IsNaN(res.p) || res.p < 0 || res.p > 1 {
		a.record(ctx, start, "invalid")
		return domain.Prediction{}, &domain.ModelUnavailableError{
			Reason: fmt.Sprintf("model returned invalid probability %v", res.p),
		}
	}
	a.record(ctx, start, "ok")

	label := 0
	if res.p >= snap.threshold {
		label = 1
	}
	return domain.Prediction{Probability: res.p, Label: label, Version: snap.version}, nil
}

func (a *Adapter) record(ctx context.Context, start time.Time, outcome string) {
	if a.latency == nil {
		return
	}
	a.latency.Record(context.WithoutCancel(ctx), float64(time.Since(start).Microseconds())/1000,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
