package services

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosubrt-server-go/internal/domain/eventbus"
	"autosubrt-server-go/internal/domain/job"
	"autosubrt-server-go/internal/domain/subtitle"
	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/logging"
)

type fakeFetcher struct {
	err      error
	payload  []byte
	lastPath string
}

func (f *fakeFetcher) Download(_ context.Context, _ string, destDir, filename string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(destDir, filename+".mp3")
	if err := os.WriteFile(path, f.payload, 0o644); err != nil {
		return "", err
	}
	f.lastPath = path
	return path, nil
}

type fakeEngine struct {
	transcript  subtitle.Transcript
	err         error
	seenPath    string
	onRecognize func()
}

func (e *fakeEngine) Recognize(_ context.Context, audioPath string) (subtitle.Transcript, error) {
	e.seenPath = audioPath
	if e.onRecognize != nil {
		e.onRecognize()
	}
	return e.transcript, e.err
}

type fixture struct {
	root    string
	fetcher *fakeFetcher
	engine  *fakeEngine
	jobs    job.Store
	svc     *RecognitionService
}

func newFixture(t *testing.T, prefix string, events *eventbus.AsyncEventBus) *fixture {
	t.Helper()
	root := t.TempDir()
	if prefix == "" {
		prefix = root + string(filepath.Separator)
	}
	f := &fixture{
		root:    root,
		fetcher: &fakeFetcher{payload: []byte("not really audio")},
		engine: &fakeEngine{transcript: subtitle.NewTranscript("hello world",
			[][]int64{{0, 400}, {450, 900}})},
		jobs: job.NewMemory(0),
	}
	t.Cleanup(func() { f.jobs.Close(context.Background()) })
	svc, err := NewRecognitionService(&RecognitionConfig{
		Fetcher: f.fetcher,
		Engine:  f.engine,
		Jobs:    f.jobs,
		Events:  events,
		Logger:  logging.NewDiscard(),
		Storage: config.StorageConfig{
			TempDir:        filepath.Join(root, "temp"),
			SrtOutputDir:   filepath.Join(root, "output", "srt"),
			VideoOutputDir: filepath.Join(root, "output", "video"),
			InternalPrefix: prefix,
			DownloadURL:    "https://dl.example.com/",
		},
		Subtitle: config.SubtitleConfig{GapThresholdMs: 250},
		Now: func() time.Time {
			return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestSubtitleFromURL_EndToEnd(t *testing.T) {
	f := newFixture(t, "", nil)
	ctx := context.Background()

	result, err := f.svc.SubtitleFromURL(ctx, "https://media.example.com/a.mp3")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^20240506070809[0-9a-f]{8}$`), result.JobID)
	assert.Equal(t, "https://dl.example.com/output/srt/"+result.JobID+".srt", result.SrtURL)
	require.Len(t, result.Cues, 1)
	assert.Equal(t, subtitle.Cue{StartMs: 0, EndMs: 900, Text: "helloworld"}, result.Cues[0])

	data, err := os.ReadFile(result.SrtPath)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:00,900\nhelloworld\n\n", string(data))

	// 下载的临时文件在请求结束后删除
	assert.Equal(t, f.fetcher.lastPath, f.engine.seenPath)
	_, err = os.Stat(f.fetcher.lastPath)
	assert.True(t, os.IsNotExist(err))

	rec, err := f.svc.Job(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusSucceeded, rec.Status)
	assert.Equal(t, job.StageDone, rec.Stage)
	assert.Equal(t, 1, rec.CueCount)
	assert.Equal(t, int64(len("not really audio")), rec.MediaBytes)
	assert.Equal(t, result.SrtURL, rec.SrtURL)
	for _, stage := range []string{job.StageAcquire, job.StageRecognize, job.StageSegment, job.StageSerialize, job.StagePublish} {
		assert.Contains(t, rec.Timings, stage)
	}
}

func TestSubtitleFromURL_PrefixMismatchKeepsPath(t *testing.T) {
	f := newFixture(t, "/definitely/not/here/", nil)

	result, err := f.svc.SubtitleFromURL(context.Background(), "http://media.example.com/a.wav")
	require.NoError(t, err)
	assert.Equal(t, result.SrtPath, result.SrtURL)
	assert.True(t, filepath.IsAbs(result.SrtURL))
}

func TestSubtitleFromURL_Validation(t *testing.T) {
	f := newFixture(t, "", nil)
	for _, raw := range []string{"", "   ", "ftp://x/a.mp3", "not a url"} {
		_, err := f.svc.SubtitleFromURL(context.Background(), raw)
		exc := errors.FromError(err)
		require.NotNil(t, exc, raw)
		assert.Equal(t, errors.ParamValidationFailed, exc.Err, raw)
	}
	records, err := f.svc.Jobs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubtitleFromURL_ErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		want  *errors.BizError
		stage string
	}{
		{
			name: "download",
			setup: func(f *fixture) {
				f.fetcher.err = errors.New(errors.KindDownload, "media.download", "unexpected status: 404 Not Found")
			},
			want:  errors.DownloadFailed,
			stage: job.StageAcquire,
		},
		{
			name: "recognition",
			setup: func(f *fixture) {
				f.engine.err = errors.Wrap(errors.KindRecognition, "asr.recognize", "recognizer failed", stderrors.New("boom"))
			},
			want:  errors.RecognizeAudioFailed,
			stage: job.StageRecognize,
		},
		{
			name: "unclassified",
			setup: func(f *fixture) {
				f.engine.err = stderrors.New("segfault")
			},
			want:  errors.InternalServerError,
			stage: job.StageRecognize,
		},
		{
			name: "prepare_dirs",
			setup: func(f *fixture) {
				// 输出目录被同名文件占用
				require.NoError(t, os.MkdirAll(filepath.Join(f.root, "output"), 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(f.root, "output", "srt"), nil, 0o644))
			},
			want:  errors.InternalServerError,
			stage: job.StageAcquire,
		},
		{
			name: "serialization",
			setup: func(f *fixture) {
				// 目录准备完成后字幕目录被替换为文件，写入临时文件失败
				srtDir := filepath.Join(f.root, "output", "srt")
				f.engine.onRecognize = func() {
					require.NoError(t, os.RemoveAll(srtDir))
					require.NoError(t, os.WriteFile(srtDir, nil, 0o644))
				}
			},
			want:  errors.SerializationFailed,
			stage: job.StageSerialize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "", nil)
			tt.setup(f)

			_, err := f.svc.SubtitleFromURL(context.Background(), "https://media.example.com/a.mp3")
			require.Error(t, err)
			var exc *errors.Exception
			require.ErrorAs(t, err, &exc)
			assert.Equal(t, tt.want, exc.Err)

			records, err := f.svc.Jobs(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, job.StatusFailed, records[0].Status)
			assert.Equal(t, tt.want.Code, records[0].ErrorCode)
			assert.Equal(t, tt.stage, records[0].Stage)

			if f.fetcher.lastPath != "" {
				_, statErr := os.Stat(f.fetcher.lastPath)
				assert.True(t, os.IsNotExist(statErr))
			}
		})
	}
}

func TestSubtitleFromURL_EmptyTranscriptFallsBack(t *testing.T) {
	f := newFixture(t, "", nil)
	f.engine.transcript = subtitle.Transcript{}

	result, err := f.svc.SubtitleFromURL(context.Background(), "https://media.example.com/silence.mp3")
	require.NoError(t, err)
	require.Len(t, result.Cues, 1)
	assert.Equal(t, subtitle.Cue{StartMs: 0, EndMs: 30000, Text: ""}, result.Cues[0])
}

func TestSubtitleFromFile_KeepsInput(t *testing.T) {
	f := newFixture(t, "", nil)
	input := filepath.Join(t.TempDir(), "local.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0o644))

	result, err := f.svc.SubtitleFromFile(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input, f.engine.seenPath)
	assert.FileExists(t, input)
	assert.FileExists(t, result.SrtPath)

	_, err = f.svc.SubtitleFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	exc := errors.FromError(err)
	assert.Equal(t, errors.ParamValidationFailed, exc.Err)
}

func TestTextFromURL(t *testing.T) {
	f := newFixture(t, "", nil)

	result, err := f.svc.TextFromURL(context.Background(), "https://media.example.com/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)

	rec, err := f.svc.Job(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.KindText, rec.Kind)
	assert.Empty(t, rec.SrtPath)

	entries, err := os.ReadDir(filepath.Join(f.root, "output", "srt"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEmbedFromURL(t *testing.T) {
	f := newFixture(t, "", nil)

	result, err := f.svc.EmbedFromURL(context.Background(), "https://media.example.com/v.mp4")
	require.NoError(t, err)
	assert.Equal(t, "", result.VideoURL)
	assert.Empty(t, f.engine.seenPath)

	_, err = f.svc.EmbedFromURL(context.Background(), "")
	assert.Equal(t, errors.ParamValidationFailed, errors.FromError(err).Err)
}

func TestJob_NotFound(t *testing.T) {
	f := newFixture(t, "", nil)
	_, err := f.svc.Job(context.Background(), "nope")
	assert.Equal(t, errors.ParamValidationFailed, errors.FromError(err).Err)
	_, err = f.svc.Job(context.Background(), "")
	assert.Equal(t, errors.ParamValidationFailed, errors.FromError(err).Err)
}

func TestRecognitionEvents(t *testing.T) {
	bus := eventbus.NewAsyncEventBus(1, 16, logging.NewDiscard())
	var mu sync.Mutex
	var got []string
	for _, topic := range eventbus.Topics() {
		topic := topic
		require.NoError(t, bus.Subscribe(topic, func(data eventbus.RecognitionEventData) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, topic+":"+data.Kind)
		}))
	}
	bus.Start()
	defer bus.Stop()

	f := newFixture(t, "", bus)
	_, err := f.svc.SubtitleFromURL(context.Background(), "https://media.example.com/a.mp3")
	require.NoError(t, err)
	f.fetcher.err = errors.New(errors.KindDownload, "media.download", "timeout")
	_, err = f.svc.TextFromURL(context.Background(), "https://media.example.com/b.mp3")
	require.Error(t, err)

	bus.WaitAsync()
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{
		eventbus.EventRecognitionStarted + ":srt",
		eventbus.EventRecognitionCompleted + ":srt",
		eventbus.EventRecognitionStarted + ":text",
		eventbus.EventRecognitionFailed + ":text",
	}, got)
}

func TestPublishURL(t *testing.T) {
	tests := []struct {
		path, prefix, want string
	}{
		{"/app/output/srt/a.srt", "/app/", "https://dl.example.com/output/srt/a.srt"},
		{"/srv/output/srt/a.srt", "/app/", "/srv/output/srt/a.srt"},
		{"/app/x/app/y.srt", "/app/", "https://dl.example.com/x/app/y.srt"},
		{"/app/a.srt", "", "/app/a.srt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PublishURL(tt.path, tt.prefix, "https://dl.example.com/"))
	}
}

func TestGenUniqueID(t *testing.T) {
	now := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	a, b := GenUniqueID(now), GenUniqueID(now)
	assert.Len(t, a, 22)
	assert.Equal(t, "20230102030405", a[:14])
	assert.NotEqual(t, a, b)
}

func TestPrepareDirs(t *testing.T) {
	f := newFixture(t, "", nil)
	require.NoError(t, f.svc.PrepareDirs())
	require.NoError(t, f.svc.PrepareDirs())
	for _, dir := range []string{"temp", "output/srt", "output/video"} {
		assert.DirExists(t, filepath.Join(f.root, dir))
	}
}

func TestNewRecognitionService_RequiresDependencies(t *testing.T) {
	_, err := NewRecognitionService(&RecognitionConfig{})
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	_, err = NewRecognitionService(&RecognitionConfig{Fetcher: &fakeFetcher{}, Engine: &fakeEngine{}})
	assert.True(t, errors.IsKind(err, errors.KindConfig))
	assert.Contains(t, err.Error(), "job store")
}
