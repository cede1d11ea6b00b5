// Package compression implements the history compression engine. When a
// conversation crosses a model-scaled token threshold, the older region is
// summarized into a single state-snapshot turn and oversized tool responses
// in either region are truncated with full originals offloaded to disk.
package compression

import (
	"context"
	"math"

	"github.com/agentfold/contextbudget/internal/models"
	"github.com/agentfold/contextbudget/internal/tokens"
)

// Summarizer produces a state snapshot from a rendered conversation region.
// Implemented by the llm package clients.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LimitFunc resolves a model name to its context-window token limit.
type LimitFunc func(model string) (int, error)

// Config holds the compression thresholds.
type Config struct {
	// TriggerRatio is the sessionTokens/modelLimit fraction above which
	// compression fires.
	TriggerRatio float64
	// TailFraction is the share of recent turns preserved verbatim.
	TailFraction float64
}

// Options control a single Compress call.
type Options struct {
	// Force compresses regardless of the trigger ratio.
	Force bool
	// Model selects the token limit used for the trigger check.
	Model string
	// Quiet suppresses the info-level outcome log.
	Quiet bool
}

// Result describes the outcome of a compression attempt.
type Result struct {
	// History is the resulting conversation. On any failure it is the
	// input, byte for byte unchanged.
	History []models.Turn
	// Compressed reports whether a snapshot replaced the early region.
	Compressed bool
	// Failure carries the summarization error when compression failed
	// soft. Nil when Compressed is true or the trigger did not fire.
	Failure error

	TokensBefore       int
	TokensAfter        int
	TruncatedResponses int
	Summary            string
}

// Compressor runs compression attempts over conversation history.
type Compressor struct {
	sum    Summarizer
	trunc  *Truncator
	est    tokens.Estimator
	limits LimitFunc
	cfg    Config
	log    Logger
}

// NewCompressor constructs a Compressor. A nil estimator falls back to the
// character heuristic and a nil logger to a no-op.
func NewCompressor(sum Summarizer, trunc *Truncator, est tokens.Estimator, limits LimitFunc, cfg Config, log Logger) *Compressor {
	if est == nil {
		est = tokens.Heuristic{}
	}
	if log == nil {
		log = NopLogger()
	}
	return &Compressor{sum: sum, trunc: trunc, est: est, limits: limits, cfg: cfg, log: log}
}

// Compress evaluates the trigger and, if it fires (or opts.Force is set),
// truncates oversized responses, summarizes the early region into one
// synthetic turn, and appends the preserved tail after it.
//
// A missing token limit for the model is a configuration error and is
// returned. A summarization failure is not: the original history comes back
// unchanged with Result.Failure set, since a partial summary is worse than
// doing nothing this turn.
func (c *Compressor) Compress(ctx context.Context, history []models.Turn, sessionTokens int, opts Options) (Result, error) {
	limit, err := c.limits(opts.Model)
	if err != nil {
		return Result{History: history}, err
	}

	if !opts.Force {
		ratio := float64(sessionTokens) / float64(limit)
		if ratio <= c.cfg.TriggerRatio {
			return Result{History: history}, nil
		}
	}

	tailStart := c.splitIndex(len(history))
	if tailStart <= 0 {
		// Nothing old enough to summarize.
		return Result{History: history}, nil
	}

	work := models.CloneHistory(history)
	early := work[:tailStart]
	tail := work[tailStart:]

	truncated := c.trunc.TruncateHistory(early)
	truncated += c.trunc.TruncateHistory(tail)

	snapshot, err := c.sum.Summarize(ctx, SnapshotSystemPrompt, BuildSnapshotPrompt(formatTurns(early)))
	if err != nil {
		c.log.Warn("snapshot generation failed, keeping history unchanged", "error", err)
		return Result{History: history, Failure: err}, nil
	}

	snapshotTurn := models.Turn{
		Role:  models.RoleModel,
		Parts: []models.Part{models.NewTextPart(snapshot)},
	}
	out := make([]models.Turn, 0, 1+len(tail))
	out = append(out, snapshotTurn)
	out = append(out, tail...)

	before := tokens.CountHistory(c.est, history)
	after := tokens.CountHistory(c.est, out)
	if !opts.Quiet {
		c.log.Info("compressed history",
			"turns_before", len(history), "turns_after", len(out),
			"tokens_before", before, "tokens_after", after,
			"truncated_responses", truncated)
	}

	return Result{
		History:            out,
		Compressed:         true,
		TokensBefore:       before,
		TokensAfter:        after,
		TruncatedResponses: truncated,
		Summary:            snapshot,
	}, nil
}

// splitIndex returns the index where the preserved tail begins. The most
// recent TailFraction of turns stays verbatim, always at least one turn.
func (c *Compressor) splitIndex(n int) int {
	if n == 0 {
		return 0
	}
	keep := int(math.Ceil(float64(n) * c.cfg.TailFraction))
	if keep < 1 {
		keep = 1
	}
	if keep >= n {
		return 0
	}
	return n - keep
}
