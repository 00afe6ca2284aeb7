package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cue(start, end int64, text string) Cue {
	return Cue{StartMs: start, EndMs: end, Text: text}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		raw   [][]int64
		gapMs int64
		want  []Cue
	}{
		{
			name:  "empty transcript falls back to default cue",
			text:  "",
			raw:   nil,
			gapMs: 250,
			want:  []Cue{cue(0, 30000, "")},
		},
		{
			name:  "text without timestamps falls back to default cue",
			text:  "hello",
			raw:   [][]int64{},
			gapMs: 250,
			want:  []Cue{cue(0, 30000, "hello")},
		},
		{
			name:  "fallback keeps raw text untouched",
			text:  "  hello   world ",
			raw:   [][]int64{{5}},
			gapMs: 250,
			want:  []Cue{cue(0, 30000, "  hello   world ")},
		},
		{
			name:  "gap above threshold splits",
			text:  "a b",
			raw:   [][]int64{{0, 500}, {2000, 2500}},
			gapMs: 250,
			want:  []Cue{cue(0, 500, "a"), cue(2000, 2500, "b")},
		},
		{
			name:  "gap below threshold merges",
			text:  "a b",
			raw:   [][]int64{{0, 500}, {2000, 2500}},
			gapMs: 2000,
			want:  []Cue{cue(0, 2500, "ab")},
		},
		{
			name:  "gap equal to threshold does not split",
			text:  "a b",
			raw:   [][]int64{{0, 500}, {750, 900}},
			gapMs: 250,
			want:  []Cue{cue(0, 900, "ab")},
		},
		{
			name:  "tokens are joined without separator",
			text:  "hello world",
			raw:   [][]int64{{0, 400}, {450, 900}},
			gapMs: 250,
			want:  []Cue{cue(0, 900, "helloworld")},
		},
		{
			name:  "several sentences",
			text:  "今 天 天 气 很 好",
			raw:   [][]int64{{0, 100}, {120, 200}, {600, 700}, {720, 800}, {2000, 2100}, {2150, 2300}},
			gapMs: 250,
			want:  []Cue{cue(0, 200, "今天"), cue(600, 800, "天气"), cue(2000, 2300, "很好")},
		},
		{
			name:  "malformed timestamps are dropped before pairing",
			text:  "a b c",
			raw:   [][]int64{{0, 100}, {7}, {1000, 1100}, {}, {1150, 1200, 99}},
			gapMs: 250,
			want:  []Cue{cue(0, 100, "a"), cue(1000, 1200, "bc")},
		},
		{
			name:  "zero threshold splits on any positive gap",
			text:  "a b c",
			raw:   [][]int64{{0, 100}, {100, 200}, {201, 300}},
			gapMs: 0,
			want:  []Cue{cue(0, 200, "ab"), cue(201, 300, "c")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.text, tt.raw, tt.gapMs)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Tokens and timestamps come from different places in the recognizer output
// and may disagree in length. Both directions truncate to the shorter side.
func TestSegment_LengthMismatch(t *testing.T) {
	t.Run("extra tokens are dropped", func(t *testing.T) {
		got := Segment("a b c d", [][]int64{{0, 100}, {1000, 1100}}, 250)
		assert.Equal(t, []Cue{cue(0, 100, "a"), cue(1000, 1100, "b")}, got)
	})

	t.Run("extra timestamps are dropped", func(t *testing.T) {
		got := Segment("a b", [][]int64{{0, 100}, {150, 200}, {5000, 6000}}, 250)
		assert.Equal(t, []Cue{cue(0, 200, "ab")}, got)
	})

	t.Run("timestamps without any token fall back", func(t *testing.T) {
		got := Segment("   ", [][]int64{{0, 100}, {150, 200}}, 250)
		assert.Equal(t, []Cue{cue(0, 30000, "   ")}, got)
	})

	t.Run("never panics on arbitrary lengths", func(t *testing.T) {
		for tokens := 0; tokens < 6; tokens++ {
			for stamps := 0; stamps < 6; stamps++ {
				text := ""
				for i := 0; i < tokens; i++ {
					text += "w "
				}
				raw := make([][]int64, stamps)
				for i := range raw {
					raw[i] = []int64{int64(i * 1000), int64(i*1000 + 100)}
				}
				cues := Segment(text, raw, 250)
				assert.NotEmpty(t, cues)
				pairs := min(tokens, stamps)
				if pairs > 0 {
					assert.Len(t, cues, pairs, "tokens=%d stamps=%d", tokens, stamps)
				}
			}
		}
	})
}

func TestSegment_Deterministic(t *testing.T) {
	raw := [][]int64{{0, 100}, {500, 600}, {620, 700}, {2000, 2100}}
	first := Segment("w x y z", raw, 250)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Segment("w x y z", raw, 250))
	}
}

func TestSegmenter_DefaultDuration(t *testing.T) {
	s := &Segmenter{GapThresholdMs: 250, DefaultDurationMs: 5000}
	assert.Equal(t, []Cue{cue(0, 5000, "hi")}, s.Segment(Transcript{Text: "hi"}))

	s.DefaultDurationMs = 0
	assert.Equal(t, []Cue{cue(0, 30000, "hi")}, s.Segment(Transcript{Text: "hi"}))
}

func TestTranscript_Pairs(t *testing.T) {
	tr := NewTranscript("x  y\tz", [][]int64{{1, 2}, {3}, {4, 5}})
	assert.Equal(t, []Timestamp{{1, 2}, {4, 5}}, tr.Timestamps)
	assert.Equal(t, []Pair{
		{Token: "x", Timestamp: Timestamp{1, 2}},
		{Token: "y", Timestamp: Timestamp{4, 5}},
	}, tr.Pairs())
	assert.False(t, tr.Empty())
	assert.True(t, Transcript{Text: " "}.Empty())
}
