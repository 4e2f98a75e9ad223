package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/mcoot/fiteval/internal/metrics"
	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/services/result"
)

// Service evaluates uploaded assets: invoke, normalize, record metrics
type Service struct {
	invoker   *Invoker
	slots     chan struct{}
	testTypes []string
	logger    *slog.Logger
}

// NewService creates a Service. cfg.MaxConcurrent > 0 limits simultaneous evaluator processes.
func NewService(invoker *Invoker, cfg Config, logger *slog.Logger) *Service {
	s := &Service{
		invoker:   invoker,
		testTypes: slices.Clone(cfg.TestTypes),
		logger:    logger,
	}
	if cfg.MaxConcurrent > 0 {
		s.slots = make(chan struct{}, cfg.MaxConcurrent)
	}
	return s
}

// Evaluate runs the evaluator on asset and returns the normalized result.
// The asset file is removed before Evaluate returns, whatever the outcome.
func (s *Service) Evaluate(ctx context.Context, asset *model.UploadedAsset) (model.EvaluationResult, error) {
	label := s.testTypeLabel(asset.TestType)

	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		case <-ctx.Done():
			s.invoker.Cleanup(asset.Path)
			metrics.EvaluationsTotal.WithLabelValues(label, metrics.OutcomeCanceled).Inc()
			return nil, ctx.Err()
		}
	}

	metrics.EvaluationsInFlight.Inc()
	out, err := s.invoker.Invoke(ctx, asset.TestType, asset.Path)
	metrics.EvaluationsInFlight.Dec()

	outcome := outcomeOf(err)
	metrics.EvaluationsTotal.WithLabelValues(label, outcome).Inc()
	if out != nil {
		metrics.EvaluationDuration.WithLabelValues(outcome).Observe(out.Duration.Seconds())
	}

	if err != nil {
		s.logger.WarnContext(ctx, "evaluation failed",
			"test_type", asset.TestType,
			"outcome", outcome,
			"error", err,
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "evaluation complete",
		"test_type", asset.TestType,
		"duration", out.Duration,
		"stdout_bytes", len(out.Stdout),
	)
	return result.Normalize(out.Stdout), nil
}

func (s *Service) testTypeLabel(testType string) string {
	if len(s.testTypes) == 0 || slices.Contains(s.testTypes, testType) {
		return testType
	}
	return "other"
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		return metrics.OutcomeSpawnFailure
	}
	switch invErr.Kind {
	case Timeout:
		return metrics.OutcomeTimeout
	case NonZeroExit:
		return metrics.OutcomeNonZeroExit
	default:
		return metrics.OutcomeSpawnFailure
	}
}
