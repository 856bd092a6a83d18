package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arnac-io/safegift/pkg/core"
	sentryReport "github.com/arnac-io/safegift/pkg/sentry"
)

var tracer = otel.Tracer("github.com/arnac-io/safegift/pkg/harness")

type Result struct {
	Name     string
	Passed   bool
	Err      error
	Duration time.Duration
}

// Reason is the revert reason of a failed scenario, or its error text.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	if reason, ok := core.RevertReason(r.Err); ok {
		return reason
	}
	return r.Err.Error()
}

// Run executes scenarios in order. A failed scenario does not stop the following ones.
// The returned error combines all scenario failures.
func (s *Suite) Run(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(scenarios))
	var errs error
	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, multierr.Append(errs, err)
		}
		res := s.runOne(ctx, sc)
		results = append(results, res)
		if res.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", sc.Name, res.Err))
		}
	}
	return results, errs
}

func (s *Suite) runOne(ctx context.Context, sc Scenario) Result {
	ctx, span := tracer.Start(ctx, sc.Name)
	defer span.End()

	start := time.Now()
	err := sc.Run(ctx, s)
	res := Result{Name: sc.Name, Passed: err == nil, Err: err, Duration: time.Since(start)}

	scenarioDuration.WithLabelValues(sc.Name).Observe(res.Duration.Seconds())
	span.SetAttributes(attribute.Bool("passed", res.Passed))
	if err != nil {
		scenarioResults.WithLabelValues(sc.Name, "fail").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Reason())
		s.logger.Error("scenario failed", zap.String("scenario", sc.Name), zap.Duration("duration", res.Duration), zap.Error(err))
		sentryReport.Send("scenario failed", sentryReport.SentryInfoData{
			"scenario": sc.Name,
			"safe":     s.Deployment.Safe.Address.Hex(),
			"module":   s.Deployment.Module.Address.Hex(),
			"error":    err.Error(),
		}, sentry.LevelError)
		return res
	}
	scenarioResults.WithLabelValues(sc.Name, "pass").Inc()
	s.logger.Info("scenario passed", zap.String("scenario", sc.Name), zap.Duration("duration", res.Duration))
	return res
}
