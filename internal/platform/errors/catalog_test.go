package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCatalog_CodesAreUnique(t *testing.T) {
	seen := make(map[int]string)
	for _, biz := range Catalog() {
		if prev, ok := seen[biz.Code]; ok {
			t.Fatalf("code %d used by both %q and %q", biz.Code, prev, biz.ENMessage)
		}
		seen[biz.Code] = biz.ENMessage
		if biz.CNMessage == "" || biz.ENMessage == "" {
			t.Fatalf("code %d is missing a message", biz.Code)
		}
	}
	if Success.Code != 0 {
		t.Fatalf("success code must be 0, got %d", Success.Code)
	}
}

func TestBizError_Message(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"zh", DownloadFailed.CNMessage},
		{"en", DownloadFailed.ENMessage},
		{"fr", DownloadFailed.CNMessage},
		{"", DownloadFailed.CNMessage},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			if got := DownloadFailed.Message(tt.lang); got != tt.want {
				t.Errorf("Message(%q) = %q, want %q", tt.lang, got, tt.want)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	raised := Raise(SerializationFailed, "disk full", nil)

	tests := []struct {
		name       string
		err        error
		wantBiz    *BizError
		wantDetail string
	}{
		{
			name:       "exception passes through",
			err:        fmt.Errorf("wrapped: %w", raised),
			wantBiz:    SerializationFailed,
			wantDetail: "disk full",
		},
		{
			name:       "download kind",
			err:        New(KindDownload, "media.download", "file size exceeds the limit"),
			wantBiz:    DownloadFailed,
			wantDetail: "file size exceeds the limit",
		},
		{
			name:       "recognition kind",
			err:        Wrap(KindRecognition, "asr.recognize", "engine crashed", errors.New("boom")),
			wantBiz:    RecognizeAudioFailed,
			wantDetail: "engine crashed: boom",
		},
		{
			name:       "validation kind",
			err:        New(KindValidation, "service.srt", "audio_url is required"),
			wantBiz:    ParamValidationFailed,
			wantDetail: "audio_url is required",
		},
		{
			name:       "unclassified",
			err:        errors.New("nil pointer somewhere"),
			wantBiz:    InternalServerError,
			wantDetail: "nil pointer somewhere",
		},
		{
			name:       "typed but unmapped kind",
			err:        New(KindStorage, "job.save", "db locked"),
			wantBiz:    InternalServerError,
			wantDetail: "[storage:job.save] db locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exc := FromError(tt.err)
			if exc.Err != tt.wantBiz {
				t.Fatalf("biz = %+v, want %+v", exc.Err, tt.wantBiz)
			}
			if exc.Detail != tt.wantDetail {
				t.Fatalf("detail = %q, want %q", exc.Detail, tt.wantDetail)
			}
		})
	}

	if FromError(nil) != nil {
		t.Fatal("FromError(nil) should be nil")
	}
}
