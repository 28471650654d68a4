// Package moderation classifies user content as harmful or clean using a
// generative language model.
package moderation

import (
	"context"
	"errors"

	"github.com/peernotes/peernotes/internal/metrics"
	"go.uber.org/zap"
)

// ErrContentRejected is returned when a verdict marks content as harmful.
var ErrContentRejected = errors.New("moderation: content rejected")

// Generator produces raw model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VerdictRecorder counts classification outcomes.
type VerdictRecorder interface {
	RecordVerdict(outcome string)
}

type GatewayConfig struct {
	// Generator may be nil, in which case every classification is clean.
	Generator Generator
	Logger    *zap.Logger
	Metrics   VerdictRecorder
}

// Gateway turns model output into verdicts. It never returns an error: an
// unreachable model produces a not-harmful verdict with Failed set.
type Gateway struct {
	generator Generator
	logger    *zap.Logger
	metrics   VerdictRecorder
}

func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		generator: cfg.Generator,
		logger:    logger,
		metrics:   cfg.Metrics,
	}
}

// Enabled reports whether a model is attached.
func (g *Gateway) Enabled() bool {
	return g != nil && g.generator != nil
}

// Classify judges a note's title and content.
func (g *Gateway) Classify(ctx context.Context, title, content string) Verdict {
	if !g.Enabled() {
		g.record(metrics.OutcomeDisabled)
		return Verdict{IsHarmful: false}
	}

	raw, err := g.generator.Generate(ctx, BuildPrompt(title, content))
	if err != nil {
		g.logger.Warn("moderation request failed", zap.Error(err))
		g.record(metrics.OutcomeFailed)
		return Verdict{IsHarmful: false, Reason: reasonServiceFailed, Failed: true}
	}

	verdict := ParseVerdict(raw)
	switch {
	case verdict.Unparsed:
		g.logger.Warn("moderation response was not valid json", zap.Int("response_length", len(raw)))
		g.record(metrics.OutcomeUnparsed)
	case verdict.IsHarmful:
		g.logger.Info("moderation flagged content", zap.String("reason", verdict.Reason))
		g.record(metrics.OutcomeHarmful)
	default:
		g.record(metrics.OutcomeClean)
	}
	return verdict
}

func (g *Gateway) record(outcome string) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.RecordVerdict(outcome)
}
