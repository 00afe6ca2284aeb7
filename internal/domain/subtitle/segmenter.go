package subtitle

import "strings"

const (
	DefaultGapThresholdMs = 250
	DefaultCueDurationMs  = 30000
)

// Cue is one subtitle entry. Index is assigned when the cues are serialized.
type Cue struct {
	Index   int
	StartMs int64
	EndMs   int64
	Text    string
}

// Segmenter groups timed tokens into cues, breaking wherever the silence
// between two consecutive tokens exceeds GapThresholdMs.
type Segmenter struct {
	GapThresholdMs int64
	// DefaultDurationMs is the length of the single cue emitted when the
	// transcript carries no usable timing.
	DefaultDurationMs int64
}

// NewSegmenter returns a Segmenter with the given gap threshold and the
// 30 second fallback cue.
func NewSegmenter(gapThresholdMs int64) *Segmenter {
	return &Segmenter{GapThresholdMs: gapThresholdMs, DefaultDurationMs: DefaultCueDurationMs}
}

// Segment is shorthand for NewSegmenter(gapThresholdMs).Segment(NewTranscript(text, raw)).
func Segment(text string, raw [][]int64, gapThresholdMs int64) []Cue {
	return NewSegmenter(gapThresholdMs).Segment(NewTranscript(text, raw))
}

// Segment never fails and always returns at least one cue. Tokens are joined
// without a separator.
func (s *Segmenter) Segment(t Transcript) []Cue {
	pairs := t.Pairs()
	cues := make([]Cue, 0, 4)

	start := 0
	for i := 1; i < len(pairs); i++ {
		interval := pairs[i].StartMs - pairs[i-1].EndMs
		if interval > s.GapThresholdMs && i > start {
			cues = append(cues, span(pairs[start:i]))
			start = i
		}
	}
	if start < len(pairs) {
		cues = append(cues, span(pairs[start:]))
	}

	if len(cues) == 0 && len(pairs) > 0 {
		cues = append(cues, span(pairs))
	}

	if len(cues) == 0 {
		duration := s.DefaultDurationMs
		if duration <= 0 {
			duration = DefaultCueDurationMs
		}
		cues = append(cues, Cue{StartMs: 0, EndMs: duration, Text: t.Text})
	}
	return cues
}

func span(pairs []Pair) Cue {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.Token)
	}
	return Cue{
		StartMs: pairs[0].StartMs,
		EndMs:   pairs[len(pairs)-1].EndMs,
		Text:    b.String(),
	}
}
