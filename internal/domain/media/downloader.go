package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/logging"
)

const (
	defaultAccept = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"
	logTag        = "下载"
)

// Downloader 拉取远程音视频文件到本地目录，限制大小与总耗时
type Downloader struct {
	client   *resty.Client
	maxBytes int64
	logger   *logging.Logger
}

// NewDownloader 根据下载配置创建 Downloader
func NewDownloader(cfg config.DownloadConfig, logger *logging.Logger) *Downloader {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxDownloadBytes
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultDownloadTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("Accept", defaultAccept)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Referer != "" {
		client.SetHeader("Referer", cfg.Referer)
	}
	if cfg.AcceptLanguage != "" {
		client.SetHeader("Accept-Language", cfg.AcceptLanguage)
	}

	return &Downloader{client: client, maxBytes: maxBytes, logger: logger}
}

// MaxBytes 返回单个文件的大小上限
func (d *Downloader) MaxBytes() int64 {
	return d.maxBytes
}

// Download 把 rawURL 保存到 destDir/filename 并返回完整路径。filename 不含扩展名时
// 先按 Content-Type 推断，推断不出再嗅探文件头。任何失败都会删除已写入的部分文件。
func (d *Downloader) Download(ctx context.Context, rawURL, destDir, filename string) (string, error) {
	const op = "media.download"

	if err := validateURL(rawURL); err != nil {
		return "", err
	}
	if strings.TrimSpace(filename) == "" {
		return "", errors.New(errors.KindValidation, op, "empty filename")
	}

	started := time.Now()
	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return "", d.fail(rawURL, errors.Wrap(errors.KindDownload, op, "request failed", err))
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", d.fail(rawURL, errors.New(errors.KindDownload, op, "unexpected status: "+resp.Status()))
	}

	declared := resp.RawResponse.ContentLength
	if declared > d.maxBytes {
		return "", d.fail(rawURL, errors.New(errors.KindDownload, op, d.limitMessage()))
	}

	hasExt := strings.Contains(filename, ".")
	if !hasExt {
		filename += extensionForContentType(resp.Header().Get("Content-Type"))
	}
	savePath := filepath.Join(destDir, filename)

	written, err := d.save(savePath, body)
	if err != nil {
		os.Remove(savePath)
		return "", d.fail(rawURL, err)
	}
	if declared >= 0 && written != declared {
		os.Remove(savePath)
		msg := fmt.Sprintf("file download incomplete: expected %d bytes, actual %d bytes", declared, written)
		return "", d.fail(rawURL, errors.New(errors.KindDownload, op, msg))
	}

	if !strings.Contains(filepath.Base(savePath), ".") {
		savePath = sniffAndRename(savePath)
	}

	d.logger.InfoTag(logTag, "下载完成 url=%s path=%s bytes=%d cost=%s", rawURL, savePath, written, time.Since(started))
	return savePath, nil
}

func (d *Downloader) save(path string, body io.Reader) (int64, error) {
	const op = "media.save"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.Wrap(errors.KindDownload, op, "create file", err)
	}

	written, copyErr := io.Copy(f, io.LimitReader(body, d.maxBytes+1))
	closeErr := f.Close()
	if copyErr != nil {
		return written, errors.Wrap(errors.KindDownload, op, "read body", copyErr)
	}
	if written > d.maxBytes {
		return written, errors.New(errors.KindDownload, op, d.limitMessage())
	}
	if closeErr != nil {
		return written, errors.Wrap(errors.KindDownload, op, "close file", closeErr)
	}
	return written, nil
}

func (d *Downloader) limitMessage() string {
	return fmt.Sprintf("file size exceeds the limit of %.2fMB", float64(d.maxBytes)/1024/1024)
}

func (d *Downloader) fail(rawURL string, err error) error {
	d.logger.WarnTag(logTag, "Download failed, url: %s, error: %v", rawURL, err)
	return err
}

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New(errors.KindValidation, "media.download", "invalid url: "+rawURL)
	}
	return nil
}

// extensionForContentType 优先使用 mimetype 的内置表，保证不同系统上结果一致
func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return ""
	}
	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// sniffAndRename 根据文件头补全扩展名，失败时保留原路径
func sniffAndRename(path string) string {
	m, err := mimetype.DetectFile(path)
	if err != nil || m.Extension() == "" {
		return path
	}
	renamed := path + m.Extension()
	if err := os.Rename(path, renamed); err != nil {
		return path
	}
	return renamed
}
