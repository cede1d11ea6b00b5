// Package logging adapts a zap logger to the small structured logging
// interfaces the budget engines consume.
package logging

import (
	"go.uber.org/zap"

	"github.com/agentfold/contextbudget/internal/masking"
)

// Adapter wraps a zap.SugaredLogger behind key-value Debug/Info/Warn/Error
// methods. It satisfies masking.Logger and compression.Logger.
type Adapter struct {
	s *zap.SugaredLogger
}

// NewAdapter creates an Adapter from a zap logger.
func NewAdapter(l *zap.Logger) *Adapter {
	return &Adapter{s: l.Sugar()}
}

func (a *Adapter) Debug(msg string, args ...any) { a.s.Debugw(msg, args...) }
func (a *Adapter) Info(msg string, args ...any)  { a.s.Infow(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.s.Warnw(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.s.Errorw(msg, args...) }

// EventRecorder logs masking telemetry events through zap.
type EventRecorder struct {
	s *zap.SugaredLogger
}

// NewEventRecorder creates a recorder that logs each masking event.
func NewEventRecorder(l *zap.Logger) *EventRecorder {
	return &EventRecorder{s: l.Sugar()}
}

// Record logs the event at info level.
func (r *EventRecorder) Record(ev masking.Event) {
	r.s.Infow("masking telemetry",
		"tokens_before", ev.TokensBefore,
		"tokens_after", ev.TokensAfter,
		"masked_count", ev.MaskedCount,
		"total_prunable_tokens", ev.TotalPrunableTokens,
	)
}
