package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arjunm/recallmap/internal/store"
)

type contextKey string

const purposeKey contextKey = "llm_purpose"

// WithPurpose tags the context with what the call is for ("start-session",
// "validate-answer", ...) so the audit trail can group requests.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom reads the purpose tag, defaulting to "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// auditProvider records every model call as an event.
type auditProvider struct {
	inner Provider
	repo  store.EventRepo
	log   *zap.Logger
}

// WithAudit wraps a provider so each request lands in the event store.
// Audit failures are logged and swallowed; they never fail the request.
func WithAudit(p Provider, repo store.EventRepo, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &auditProvider{inner: p, repo: repo, log: log}
}

func (a *auditProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := a.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:  a.inner.ModelID(),
		Model:     a.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		data.Model = resp.Model
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	if logErr := a.repo.AppendLLMRequest(ctx, data); logErr != nil {
		a.log.Warn("failed to record llm request event", zap.Error(logErr))
	}

	return resp, err
}

func (a *auditProvider) ModelID() string { return a.inner.ModelID() }
