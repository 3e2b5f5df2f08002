package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/avi5049/cardio-risk/internal/domain"
)

// Booster evaluates a gradient-boosted tree ensemble exported with
// XGBoost's save_model("*.json"). Only gbtree + binary:logistic is supported.
// A Booster is immutable after parsing and safe for concurrent use.
type Booster struct {
	trees        []tree
	baseMargin   float64
	numFeature   int
	featureNames []string
	threshold    float64
}

type tree struct {
	left       []int32
	right      []int32
	splitIndex []int32
	splitCond  []float64
	defaultL   []bool
}

type xgbDocument struct {
	Learner struct {
		Attributes       map[string]string `json:"attributes"`
		FeatureNames     []string          `json:"feature_names"`
		LearnerModelParm struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int32     `json:"left_children"`
	RightChildren   []int32     `json:"right_children"`
	SplitIndices    []int32     `json:"split_indices"`
	SplitConditions []float64   `json:"split_conditions"`
	DefaultLeft     []looseBool `json:"default_left"`
	SplitType       []int       `json:"split_type"`
}

// looseBool accepts both the 0/1 and true/false encodings XGBoost has used.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "1", "true":
		*b = true
	case "0", "false":
		*b = false
	default:
		return fmt.Errorf("invalid default_left value %s", data)
	}
	return nil
}

// ParseBooster decodes and checks an XGBoost JSON model.
func ParseBooster(data []byte) (*Booster, error) {
	var doc xgbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode xgboost json: %w", err)
	}
	l := doc.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", name)
	}
	if obj := l.Objective.Name; obj != "binary:logistic" {
		return nil, fmt.Errorf("unsupported objective %q", obj)
	}
	if nc := l.LearnerModelParm.NumClass; nc != "" && nc != "0" && nc != "1" {
		return nil, fmt.Errorf("multi-class models are not supported (num_class=%s)", nc)
	}

	numFeature, err := strconv.Atoi(l.LearnerModelParm.NumFeature)
	if err != nil {
		return nil, fmt.Errorf("parse num_feature: %w", err)
	}
	if numFeature < domain.NumFeatures {
		return nil, fmt.Errorf("model expects %d features, have %d", numFeature, domain.NumFeatures)
	}
	if err := checkFeatureNames(l.FeatureNames); err != nil {
		return nil, err
	}

	baseScore, err := parseBaseScore(l.LearnerModelParm.BaseScore)
	if err != nil {
		return nil, err
	}
	if baseScore <= 0 || baseScore >= 1 {
		return nil, fmt.Errorf("base_score %v outside (0,1)", baseScore)
	}

	threshold := 0.5
	if raw, ok := l.Attributes["decision_threshold"]; ok {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 || threshold >= 1 {
			return nil, fmt.Errorf("invalid decision_threshold attribute %q", raw)
		}
	}

	trees := l.GradientBooster.Model.Trees
	if len(trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}

	b := &Booster{
		trees:        make([]tree, 0, len(trees)),
		baseMargin:   math.Log(baseScore / (1 - baseScore)),
		numFeature:   numFeature,
		featureNames: l.FeatureNames,
		threshold:    threshold,
	}
	for i, t := range trees {
		parsed, err := buildTree(t, numFeature)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		b.trees = append(b.trees, parsed)
	}
	return b, nil
}

func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != domain.NumFeatures {
		return fmt.Errorf("model has %d feature names, want %d", len(names), domain.NumFeatures)
	}
	for i, name := range names {
		if name != domain.FeatureNames[i] {
			return fmt.Errorf("feature %d is %q in the model, want %q", i, name, domain.FeatureNames[i])
		}
	}
	return nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" form.
func parseBaseScore(raw string) (float64, error) {
	s := strings.Trim(strings.TrimSpace(raw), "[]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse base_score %q: %w", raw, err)
	}
	return v, nil
}

func buildTree(t xgbTree, numFeature int) (tree, error) {
	n := len(t.LeftChildren)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n ||
		len(t.SplitConditions) != n || len(t.DefaultLeft) != n {
		return tree{}, fmt.Errorf("node arrays have inconsistent lengths")
	}
	for _, st := range t.SplitType {
		if st != 0 {
			return tree{}, fmt.Errorf("categorical splits are not supported")
		}
	}

	out := tree{
		left:       t.LeftChildren,
		right:      t.RightChildren,
		splitIndex: t.SplitIndices,
		splitCond:  t.SplitConditions,
		defaultL:   make([]bool, n),
	}
	for i := 0; i < n; i++ {
		out.defaultL[i] = bool(t.DefaultLeft[i])
		l, r := out.left[i], out.right[i]
		if l == -1 {
			continue
		}
		if l <= int32(i) || r <= int32(i) || int(l) >= n || int(r) >= n {
			return tree{}, fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
		if idx := out.splitIndex[i]; idx < 0 || int(idx) >= numFeature {
			return tree{}, fmt.Errorf("node %d splits on unknown feature %d", i, idx)
		}
	}
	return out, nil
}

// leaf walks the tree; NaN features follow the default direction.
func (t *tree) leaf(x []float64) float64 {
	node := int32(0)
	for t.left[node] != -1 {
		idx := t.splitIndex[node]
		var v float64
		if int(idx) < len(x) {
			v = x[idx]
		} else {
			v = math.NaN()
		}
		switch {
		case math.IsNaN(v):
			if t.defaultL[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case float32(v) < float32(t.splitCond[node]): // xgboost compares in float32
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return t.splitCond[node]
}

// Margin returns the raw additive score before the logistic transform.
func (b *Booster) Margin(x []float64) float64 {
	m := b.baseMargin
	for i := range b.trees {
		m += b.trees[i].leaf(x)
	}
	return m
}

// Score implements Scorer.
func (b *Booster) Score(ctx context.Context, x []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return sigmoid(b.Margin(x)), nil
}

// NumTrees reports the ensemble size.
func (b *Booster) NumTrees() int { return len(b.trees) }

// Threshold reports the decision threshold stored with the artifact.
func (b *Booster) Threshold() float64 { return b.threshold }

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
