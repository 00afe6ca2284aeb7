package eventbus

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosubrt-server-go/internal/platform/logging"
)

func TestAsyncEventBus_DeliversAndDrains(t *testing.T) {
	bus := NewAsyncEventBus(2, 16, logging.NewDiscard())
	bus.Start()

	var mu sync.Mutex
	var got []string
	require.NoError(t, bus.Subscribe(EventRecognitionStarted, func(data RecognitionEventData) {
		mu.Lock()
		got = append(got, data.JobID)
		mu.Unlock()
	}))
	assert.True(t, bus.HasCallback(EventRecognitionStarted))

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, bus.PublishAsync(EventRecognitionStarted, RecognitionEventData{JobID: id}))
	}
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)

	assert.False(t, bus.PublishAsync(EventRecognitionStarted, RecognitionEventData{JobID: "late"}))
	assert.Equal(t, int64(1), bus.Dropped())
	bus.Stop()
}

func TestAsyncEventBus_DropsWhenFull(t *testing.T) {
	bus := NewAsyncEventBus(1, 1, logging.NewDiscard())
	var calls int32
	require.NoError(t, bus.Subscribe(EventRecognitionFailed, func(RecognitionEventData) {
		atomic.AddInt32(&calls, 1)
	}))

	// 未启动，队列容量为 1
	assert.True(t, bus.PublishAsync(EventRecognitionFailed, RecognitionEventData{}))
	assert.False(t, bus.PublishAsync(EventRecognitionFailed, RecognitionEventData{}))
	assert.Equal(t, int64(1), bus.Dropped())

	bus.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAsyncEventBus_RecoversFromPanic(t *testing.T) {
	var buf bytes.Buffer
	bus := NewAsyncEventBus(1, 4, logging.NewWithWriters("DEBUG", &buf, io.Discard))
	bus.Start()
	require.NoError(t, bus.Subscribe(EventRecognitionCompleted, func(RecognitionEventData) {
		panic("boom")
	}))
	bus.PublishAsync(EventRecognitionCompleted, RecognitionEventData{})
	bus.WaitAsync()
	bus.Stop()
	assert.Contains(t, buf.String(), "panic")
}

func TestSetupEventHandlers(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriters("DEBUG", &buf, io.Discard)
	bus := NewAsyncEventBus(1, 8, logger)
	bus.Start()
	require.NoError(t, SetupEventHandlers(bus, NewLogHandler(logger)))

	bus.PublishAsync(EventRecognitionStarted, RecognitionEventData{JobID: "j1", Kind: "srt", SourceURL: "http://x/a.mp3"})
	bus.PublishAsync(EventRecognitionCompleted, RecognitionEventData{JobID: "j1", CueCount: 3})
	bus.PublishAsync(EventRecognitionFailed, RecognitionEventData{JobID: "j2", Code: 2001, Detail: "timeout"})
	bus.Stop()

	out := buf.String()
	assert.Contains(t, out, "[事件] 识别开始: job=j1")
	assert.Contains(t, out, "cues=3")
	assert.Contains(t, out, "code=2001 detail=timeout")
}
