// Package masking implements the observation masking engine. A pass walks
// history backwards, protects the most recent observation tokens up to a
// threshold, and replaces everything older with a bounded guidance block
// pointing at an offloaded file.
package masking

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agentfold/contextbudget/internal/models"
	"github.com/agentfold/contextbudget/internal/offload"
	"github.com/agentfold/contextbudget/internal/tokens"
)

// ObservationWriter persists a masked observation's full content. Satisfied
// by *offload.Store; tests inject failing writers to exercise the fallback.
type ObservationWriter interface {
	WriteObservation(toolName, callID, content string) (offload.FileInfo, error)
}

// Config holds the masking thresholds.
type Config struct {
	// ProtectTokens is how many recent observation tokens stay untouched.
	ProtectTokens int
	// HysteresisTokens is the minimum prunable volume before a pass does
	// any work. Below it the pass is a no-op, so masking does not fire on
	// every turn once the protected window fills.
	HysteresisTokens int
	// ProtectLatestTurn excludes the newest turn from masking entirely.
	ProtectLatestTurn bool
}

// Masker runs masking passes over conversation history.
type Masker struct {
	store ObservationWriter
	est   tokens.Estimator
	cfg   Config
	log   Logger
	rec   Recorder
}

// Option configures a Masker.
type Option func(*Masker)

// WithLogger sets the masker's logger.
func WithLogger(log Logger) Option {
	return func(m *Masker) { m.log = log }
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(rec Recorder) Option {
	return func(m *Masker) { m.rec = rec }
}

// NewMasker constructs a Masker. A nil estimator falls back to the character
// heuristic shared by the rest of the system.
func NewMasker(store ObservationWriter, est tokens.Estimator, cfg Config, opts ...Option) *Masker {
	if est == nil {
		est = tokens.Heuristic{}
	}
	m := &Masker{
		store: store,
		est:   est,
		cfg:   cfg,
		log:   NopLogger(),
		rec:   NopRecorder(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Result describes the outcome of a masking pass.
type Result struct {
	// History is the transformed conversation. When nothing was masked it
	// is the input slice, unmodified and uncopied.
	History     []models.Turn
	MaskedCount int
	TokensSaved int
	Telemetry   *Event
}

// candidate is an unmasked function response selected for pruning.
type candidate struct {
	turnIndex  int
	partIndex  int
	tokenCount int
	serialized string
	name       string
	callID     string
	raw        json.RawMessage
}

// Mask runs one masking pass. The pass never fails: offload write errors
// degrade individual parts to preview-only guidance, and the error return
// exists only for context cancellation.
func (m *Masker) Mask(ctx context.Context, history []models.Turn) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{History: history}, err
	}

	cands, prunable := m.classify(history)
	if len(cands) == 0 {
		return Result{History: history}, nil
	}
	if prunable < m.cfg.HysteresisTokens {
		m.log.Debug("masking below hysteresis, skipping",
			"prunable_tokens", prunable, "hysteresis", m.cfg.HysteresisTokens)
		return Result{History: history}, nil
	}

	out := models.CloneHistory(history)

	// Offload writes are independent per part, so they run concurrently.
	infos := make([]*offload.FileInfo, len(cands))
	var wg sync.WaitGroup
	for i, c := range cands {
		wg.Add(1)
		go func(i int, c candidate) {
			defer wg.Done()
			info, err := m.store.WriteObservation(c.name, c.callID, c.serialized)
			if err != nil {
				m.log.Warn("observation offload failed, keeping preview only",
					"tool", c.name, "call_id", c.callID, "error", err)
				return
			}
			infos[i] = &info
		}(i, c)
	}
	wg.Wait()

	saved := 0
	for i, c := range cands {
		preview := buildPreview(c.name, c.serialized, c.raw)
		guidance := buildGuidance(c.name, preview, c.tokenCount, infos[i])

		payload, err := json.Marshal(guidance)
		if err != nil {
			// Marshal of a string cannot fail; guard anyway.
			m.log.Error("guidance marshal failed", "tool", c.name, "error", err)
			continue
		}
		out[c.turnIndex].Parts[c.partIndex].FunctionResponse.Response = payload
		saved += c.tokenCount - m.est.Count(guidance)
	}

	before := tokens.CountHistory(m.est, history)
	res := Result{
		History:     out,
		MaskedCount: len(cands),
		TokensSaved: saved,
	}
	if saved > 0 {
		ev := Event{
			TokensBefore:        before,
			TokensAfter:         before - saved,
			MaskedCount:         len(cands),
			TotalPrunableTokens: prunable,
		}
		res.Telemetry = &ev
		m.rec.Record(ev)
		m.log.Info("masked observations",
			"masked_count", len(cands), "tokens_saved", saved, "tokens_before", before)
	}
	return res, nil
}

// classify scans history newest-first and partitions unmasked function
// responses into a protected window and a prunable remainder. Once the
// running protected total crosses the threshold, that part and every older
// one are prunable. Returns candidates in scan order plus their token sum.
func (m *Masker) classify(history []models.Turn) ([]candidate, int) {
	var cands []candidate
	prunable := 0
	protectedTotal := 0

	start := len(history) - 1
	if m.cfg.ProtectLatestTurn && start >= 0 {
		start--
	}

	for ti := start; ti >= 0; ti-- {
		turn := history[ti]
		for pi := len(turn.Parts) - 1; pi >= 0; pi-- {
			part := turn.Parts[pi]
			if part.Type != models.PartTypeFunctionResponse || part.FunctionResponse == nil {
				continue
			}
			obs := part.FunctionResponse.Observation()
			if IsMasked(obs) {
				continue
			}
			count := m.est.Count(obs)

			protectedTotal += count
			if protectedTotal <= m.cfg.ProtectTokens {
				continue
			}
			cands = append(cands, candidate{
				turnIndex:  ti,
				partIndex:  pi,
				tokenCount: count,
				serialized: obs,
				name:       part.FunctionResponse.Name,
				callID:     part.FunctionResponse.CallID,
				raw:        part.FunctionResponse.Response,
			})
			prunable += count
		}
	}
	return cands, prunable
}
