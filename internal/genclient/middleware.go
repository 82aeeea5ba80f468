package genclient

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"grantdraft/internal/credential"
	"grantdraft/internal/metrics"
	"grantdraft/internal/proposal"
)

// Middleware decorates a Generator.
type Middleware func(Generator) Generator

// Wrap applies middlewares so that the first one is the outermost.
func Wrap(g Generator, mws ...Middleware) Generator {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			g = mws[i](g)
		}
	}
	return g
}

// Outcome classifies a Generate result for logs and metrics.
func Outcome(text string, err error) string {
	switch {
	case err == nil && text == FallbackText:
		return "empty"
	case err == nil:
		return "success"
	case errors.Is(err, ErrCredentialMissing):
		return "credential_missing"
	case IsAuthError(err):
		return "auth_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}

// WithLogging logs request sizes, latency and failures. Only the credential
// fingerprint is ever logged.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Generator) Generator {
		return GeneratorFunc(func(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error) {
			log := logger.With(
				zap.Int("prompt_bytes", len(prompt)),
				zap.Bool("attachment", file != nil),
				zap.String("credential", cred.Fingerprint()),
			)
			log.Debug("generation request")
			start := time.Now()
			text, err := next.Generate(ctx, prompt, cred, file)
			elapsed := time.Since(start)
			if err != nil {
				log.Warn("generation failed",
					zap.Duration("elapsed", elapsed),
					zap.String("outcome", Outcome(text, err)),
					zap.Error(err),
				)
				return text, err
			}
			log.Info("generation done",
				zap.Duration("elapsed", elapsed),
				zap.Int("result_bytes", len(text)),
				zap.String("outcome", Outcome(text, err)),
			)
			return text, nil
		})
	}
}

// WithMetrics records call counts by outcome and latency.
func WithMetrics() Middleware {
	return func(next Generator) Generator {
		return GeneratorFunc(func(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error) {
			metrics.GenerationPromptBytes.Observe(float64(len(prompt)))
			start := time.Now()
			text, err := next.Generate(ctx, prompt, cred, file)
			metrics.GenerationDuration.Observe(time.Since(start).Seconds())
			metrics.GenerationTotal.WithLabelValues(Outcome(text, err)).Inc()
			return text, err
		})
	}
}

// WithTracing wraps each call in a span. A nil tracer uses the global
// provider, which is a no-op unless one is installed.
func WithTracing(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer("grantdraft/genclient")
	}
	return func(next Generator) Generator {
		return GeneratorFunc(func(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error) {
			ctx, span := tracer.Start(ctx, "llm.generate", trace.WithAttributes(
				attribute.String("llm.model", Model),
				attribute.Int("llm.prompt_bytes", len(prompt)),
				attribute.Bool("llm.attachment", file != nil),
			))
			defer span.End()
			text, err := next.Generate(ctx, prompt, cred, file)
			span.SetAttributes(attribute.String("llm.outcome", Outcome(text, err)))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return text, err
		})
	}
}
