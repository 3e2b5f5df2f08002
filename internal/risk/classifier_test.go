package risk

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/avi5049/cardio-risk/internal/domain"
)

type fakePredictor struct {
	mu   sync.Mutex
	seen []domain.FeatureVector
	pred domain.Prediction
	err  error
}

func (f *fakePredictor) Predict(ctx context.Context, v domain.FeatureVector) (domain.Prediction, error) {
	f.mu.Lock()
	f.seen = append(f.seen, v)
	f.mu.Unlock()
	return f.pred, f.err
}

const body = `{"gender":1,"height":170,"weight":70,"ageInYr":45,"ap_hi":120,"ap_lo":80,
"cholesterol":1,"gluc":1,"smoke":0,"alco":0,"active":1}`

func TestAssessRawPipeline(t *testing.T) {
	p := &fakePredictor{pred: domain.Prediction{Probability: 0.23, Label: 0, Version: "abc"}}
	c := NewClassifier(p)

	res, _, err := c.AssessRaw(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RiskTier != domain.RiskLow || res.Prediction != 0 || res.Probability != 0.23 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ModelVersion != "abc" {
		t.Fatalf("expected model version abc, got %s", res.ModelVersion)
	}
	if res.Derived.Hypertension || res.Derived.Obese || res.Derived.AgeGroup != 2 {
		t.Fatalf("unexpected derived features %+v", res.Derived)
	}
	if len(p.seen) != 1 {
		t.Fatalf("expected one model call, got %d", len(p.seen))
	}
	v := p.seen[0]
	if v[3] != 120 || v[10] != 45 || v[14] != 2 {
		t.Fatalf("unexpected feature vector %v", v)
	}
}

func TestAssessHighTier(t *testing.T) {
	c := NewClassifier(&fakePredictor{pred: domain.Prediction{Probability: 0.81, Label: 1}})
	res, err := c.Assess(context.Background(), domain.RawInput{HeightCM: 170, WeightKG: 70, AgeYears: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RiskTier != domain.RiskHigh || res.RiskTier.Label() != "High Risk" {
		t.Fatalf("expected high tier, got %s", res.RiskTier)
	}
}

func TestAssessRawValidationSkipsModel(t *testing.T) {
	p := &fakePredictor{}
	c := NewClassifier(p)

	_, _, err := c.AssessRaw(context.Background(), []byte(`{"gender":1}`))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(p.seen) != 0 {
		t.Fatal("model must not be called for invalid input")
	}
}

func TestAssessPropagatesModelUnavailable(t *testing.T) {
	want := &domain.ModelUnavailableError{Reason: "not loaded"}
	c := NewClassifier(&fakePredictor{err: want})

	_, _, err := c.AssessRaw(context.Background(), []byte(body))
	if !errors.Is(err, want) {
		t.Fatalf("expected error to propagate unchanged, got %v", err)
	}
}

func TestAssessConcurrent(t *testing.T) {
	p := &fakePredictor{pred: domain.Prediction{Probability: 0.4}}
	c := NewClassifier(p)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.AssessRaw(context.Background(), []byte(body)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if len(p.seen) != 16 {
		t.Fatalf("expected 16 calls, got %d", len(p.seen))
	}
}
