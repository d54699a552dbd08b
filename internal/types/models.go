package types

// SegmentResult is the outcome of transcribing one segment.
type SegmentResult struct {
	Index    int    `json:"index"`
	StartMs  int    `json:"start_ms"`
	EndMs    int    `json:"end_ms"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Error    string `json:"error,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// OK reports whether the segment was transcribed.
func (r SegmentResult) OK() bool { return r.Error == "" && !r.Skipped }

// Transcript is the aggregate of a whole run.
type Transcript struct {
	RunID      string          `json:"run_id"`
	Source     string          `json:"source,omitempty"`
	Engine     string          `json:"engine"`
	Model      string          `json:"model"`
	Text       string          `json:"text"`
	Language   string          `json:"language"`
	Segments   []SegmentResult `json:"segments"`
	Skipped    int             `json:"skipped"`
	DurationMs int64           `json:"duration_ms"` // source audio length
	ElapsedMs  int64           `json:"elapsed_ms"`
}
