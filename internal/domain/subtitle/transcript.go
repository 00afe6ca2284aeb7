package subtitle

import "strings"

// Timestamp is one token's [start, end] in milliseconds.
type Timestamp struct {
	StartMs int64
	EndMs   int64
}

// Pair is a token aligned with its timestamp.
type Pair struct {
	Token string
	Timestamp
}

// Transcript holds recognizer text and its per-token timestamps.
//
// Tokens and timestamps are aligned by position. The recognizer may return
// sequences of different lengths; Pairs truncates to the shorter one.
type Transcript struct {
	Text       string
	Timestamps []Timestamp
}

// NewTranscript builds a Transcript from raw [start, end] entries. Entries
// with fewer than two values are dropped; values past the second are ignored.
func NewTranscript(text string, raw [][]int64) Transcript {
	valid := make([]Timestamp, 0, len(raw))
	for _, ts := range raw {
		if len(ts) < 2 {
			continue
		}
		valid = append(valid, Timestamp{StartMs: ts[0], EndMs: ts[1]})
	}
	return Transcript{Text: text, Timestamps: valid}
}

// Tokens splits Text on whitespace.
func (t Transcript) Tokens() []string {
	return strings.Fields(t.Text)
}

// Pairs zips tokens with timestamps, truncated to the shorter sequence.
func (t Transcript) Pairs() []Pair {
	tokens := t.Tokens()
	n := min(len(tokens), len(t.Timestamps))
	pairs := make([]Pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = Pair{Token: tokens[i], Timestamp: t.Timestamps[i]}
	}
	return pairs
}

// Empty reports whether there is neither text nor timing.
func (t Transcript) Empty() bool {
	return strings.TrimSpace(t.Text) == "" && len(t.Timestamps) == 0
}
