package errors

import (
	"errors"
	"fmt"
)

// BizError 业务错误码定义，与HTTP状态码无关
type BizError struct {
	Code      int
	CNMessage string
	ENMessage string
}

var (
	Success               = &BizError{Code: 0, CNMessage: "成功", ENMessage: "Success"}
	InternalServerError   = &BizError{Code: 1000, CNMessage: "服务器内部错误", ENMessage: "Internal server error"}
	ParamValidationFailed = &BizError{Code: 1001, CNMessage: "参数校验失败", ENMessage: "Parameter validation failed"}
	DownloadFailed        = &BizError{Code: 2001, CNMessage: "下载文件失败", ENMessage: "Download file failed"}
	RecognizeAudioFailed  = &BizError{Code: 2002, CNMessage: "语音识别失败", ENMessage: "Recognize audio failed"}
	SerializationFailed   = &BizError{Code: 2003, CNMessage: "字幕文件写入失败", ENMessage: "Write subtitle file failed"}
)

// Catalog lists every business error in code order.
func Catalog() []*BizError {
	return []*BizError{
		Success,
		InternalServerError,
		ParamValidationFailed,
		DownloadFailed,
		RecognizeAudioFailed,
		SerializationFailed,
	}
}

// Message 返回指定语言的提示信息，非 en 一律按中文处理
func (b *BizError) Message(lang string) string {
	if lang == "en" {
		return b.ENMessage
	}
	return b.CNMessage
}

// Exception 携带业务错误码与可选详情的错误
type Exception struct {
	Err    *BizError
	Detail string
	Cause  error
}

func (e *Exception) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s (%s)", e.Err.Code, e.Err.ENMessage, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Err.Code, e.Err.ENMessage)
}

func (e *Exception) Unwrap() error {
	return e.Cause
}

// Raise builds an Exception for a catalog entry.
func Raise(biz *BizError, detail string, cause error) *Exception {
	return &Exception{Err: biz, Detail: detail, Cause: cause}
}

var kindToBiz = map[Kind]*BizError{
	KindValidation:    ParamValidationFailed,
	KindNotFound:      ParamValidationFailed,
	KindDownload:      DownloadFailed,
	KindRecognition:   RecognizeAudioFailed,
	KindSerialization: SerializationFailed,
}

// FromError 把任意错误映射为业务异常，详情为 Message 加上底层 Cause。未分类的错误统一为
// INTERNAL_SERVER_ERROR，详情为错误的字符串形式。
func FromError(err error) *Exception {
	if err == nil {
		return nil
	}

	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}

	var typed *Error
	if errors.As(err, &typed) {
		if biz, ok := kindToBiz[typed.Kind]; ok {
			detail := typed.Message
			if typed.Cause != nil {
				detail += ": " + typed.Cause.Error()
			}
			return &Exception{Err: biz, Detail: detail, Cause: err}
		}
	}

	return &Exception{Err: InternalServerError, Detail: err.Error(), Cause: err}
}
