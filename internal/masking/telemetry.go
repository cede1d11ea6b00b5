package masking

// Event is the usage event emitted after a masking pass, only when net
// savings is strictly positive.
type Event struct {
	TokensBefore        int `json:"tokens_before"`
	TokensAfter         int `json:"tokens_after"`
	MaskedCount         int `json:"masked_count"`
	TotalPrunableTokens int `json:"total_prunable_tokens"`
}

// Recorder receives masking telemetry events.
type Recorder interface {
	Record(Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}

// NopRecorder returns a Recorder that discards events.
func NopRecorder() Recorder { return nopRecorder{} }
