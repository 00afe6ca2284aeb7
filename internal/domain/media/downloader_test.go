package media

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/logging"
)

func newTestDownloader(maxBytes int64, timeout time.Duration) *Downloader {
	cfg := config.DefaultConfig().Download
	cfg.MaxBytes = maxBytes
	cfg.Timeout = timeout
	return NewDownloader(cfg, logging.NewDiscard())
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial downloads must be removed")
}

func TestDownload_Success(t *testing.T) {
	var got http.Header
	payload := bytes.Repeat([]byte{0xAB}, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := newTestDownloader(1<<20, 5*time.Second)
	path, err := d.Download(context.Background(), srv.URL+"/a", dir, "20240101000000abcdef12")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240101000000abcdef12.mp3"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	assert.Contains(t, got.Get("User-Agent"), "Mozilla/5.0")
	assert.Equal(t, "https://www.jcaigc.cn/", got.Get("Referer"))
	assert.Equal(t, "zh-CN,zh;q=0.9,en;q=0.8", got.Get("Accept-Language"))
	assert.Equal(t, defaultAccept, got.Get("Accept"))
}

func TestDownload_KeepsGivenExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("abc"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := newTestDownloader(1024, time.Second).Download(context.Background(), srv.URL, dir, "clip.ogg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip.ogg"), path)
}

func TestDownload_SniffsUnknownContentType(t *testing.T) {
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 64)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(wav)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := newTestDownloader(1024, time.Second).Download(context.Background(), srv.URL, dir, "sample")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sample.wav"), path)
	_, err = os.Stat(filepath.Join(dir, "sample"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_SizeGuard(t *testing.T) {
	t.Run("declared length over limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "4096")
			w.Write(make([]byte, 4096))
		}))
		defer srv.Close()

		dir := t.TempDir()
		_, err := newTestDownloader(1024, time.Second).Download(context.Background(), srv.URL, dir, "big")
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindDownload))
		assertDirEmpty(t, dir)
	})

	t.Run("streamed body over limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "audio/mpeg")
			for i := 0; i < 8; i++ {
				w.Write(make([]byte, 512))
				w.(http.Flusher).Flush()
			}
		}))
		defer srv.Close()

		dir := t.TempDir()
		_, err := newTestDownloader(1024, time.Second).Download(context.Background(), srv.URL, dir, "big")
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindDownload))
		assert.Contains(t, err.Error(), "exceeds the limit")
		assertDirEmpty(t, dir)
	})

	t.Run("exactly at limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(make([]byte, 1024))
		}))
		defer srv.Close()

		_, err := newTestDownloader(1024, time.Second).Download(context.Background(), srv.URL, t.TempDir(), "ok.bin")
		assert.NoError(t, err)
	})
}

func TestDownload_IncompleteBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("only ten b"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := newTestDownloader(1024, time.Second).Download(context.Background(), srv.URL, dir, "short.mp3")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindDownload))
	assertDirEmpty(t, dir)
}

func TestDownload_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}
	}))
	defer srv.Close()

	d := newTestDownloader(1024, 100*time.Millisecond)
	dir := t.TempDir()

	_, err := d.Download(context.Background(), srv.URL+"/missing", dir, "a")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindDownload))
	assert.Contains(t, err.Error(), "404")

	_, err = d.Download(context.Background(), srv.URL+"/slow", dir, "b")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindDownload))

	for _, bad := range []string{"", "ftp://example.com/a.mp3", "not a url", "http://"} {
		_, err = d.Download(context.Background(), bad, dir, "c")
		require.Error(t, err, bad)
		assert.True(t, errors.IsKind(err, errors.KindValidation), bad)
	}

	assertDirEmpty(t, dir)
}

func TestDownload_CauseReportedOnce(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL + "/gone.mp3"
	srv.Close()

	dir := t.TempDir()
	_, err := newTestDownloader(1024, time.Second).Download(context.Background(), target, dir, "gone")
	require.Error(t, err)

	var typed *errors.Error
	require.True(t, stderrors.As(err, &typed))
	require.NotNil(t, typed.Cause)
	cause := typed.Cause.Error()
	assert.Equal(t, "request failed", typed.Message)
	assert.Equal(t, 1, strings.Count(err.Error(), cause), err.Error())

	exc := errors.FromError(err)
	assert.Equal(t, errors.DownloadFailed, exc.Err)
	assert.Equal(t, "request failed: "+cause, exc.Detail)
	assertDirEmpty(t, dir)
}

func TestExtensionForContentType(t *testing.T) {
	assert.Equal(t, ".mp3", extensionForContentType("audio/mpeg"))
	assert.Equal(t, ".wav", extensionForContentType("audio/wav; charset=binary"))
	assert.Equal(t, "", extensionForContentType("application/octet-stream"))
	assert.Equal(t, "", extensionForContentType(""))
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "a.wav")
	require.NoError(t, os.WriteFile(wav, make([]byte, 300), 0o644))
	info, err := Probe(wav)
	require.NoError(t, err)
	assert.Equal(t, Info{Path: wav, Bytes: 300}, info)

	broken := filepath.Join(dir, "b.mp3")
	require.NoError(t, os.WriteFile(broken, []byte("not an mp3"), 0o644))
	info, err = Probe(broken)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.DurationMs)

	_, err = Probe(filepath.Join(dir, "missing.mp3"))
	assert.Error(t, err)
}
