package httptransport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"autosubrt-server-go/internal/platform/errors"
)

const (
	LangZH = "zh"
	LangEN = "en"
)

// Envelope 统一的接口返回结构，HTTP 状态码恒为 200，业务结果由 Code 表示
type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// DetailData 失败响应的 data 字段
type DetailData struct {
	Detail string `json:"detail"`
}

// ResolveLang 取 Accept-Language 第一项的主语言标签，只认 zh / en，其余按 zh 处理
func ResolveLang(acceptLanguage string) string {
	first := strings.SplitN(acceptLanguage, ",", 2)[0]
	primary := strings.ToLower(strings.TrimSpace(strings.SplitN(first, "-", 2)[0]))
	if i := strings.IndexByte(primary, ';'); i >= 0 {
		primary = strings.TrimSpace(primary[:i])
	}
	if primary == LangEN {
		return LangEN
	}
	return LangZH
}

// SuccessEnvelope 包装成功结果
func SuccessEnvelope(lang string, data interface{}) Envelope {
	return Envelope{Code: errors.Success.Code, Message: errors.Success.Message(lang), Data: data}
}

// ErrorEnvelope 包装任意错误；未归类的错误按 INTERNAL_SERVER_ERROR 处理
func ErrorEnvelope(lang string, err error) Envelope {
	exc := errors.FromError(err)
	if exc == nil {
		exc = errors.Raise(errors.InternalServerError, "", nil)
	}
	return Envelope{
		Code:    exc.Err.Code,
		Message: exc.Err.Message(lang),
		Data:    DetailData{Detail: exc.Detail},
	}
}

// HTTPErrorEnvelope 包装路由层错误（404、405、401 等）
func HTTPErrorEnvelope(status int, detail string) Envelope {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return Envelope{
		Code:    status,
		Message: fmt.Sprintf("HTTP Error %d", status),
		Data:    DetailData{Detail: detail},
	}
}

func requestLang(c *gin.Context) string {
	return ResolveLang(c.GetHeader("Accept-Language"))
}

// RespondSuccess 返回成功响应
func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessEnvelope(requestLang(c), data))
}

// RespondError 返回业务错误响应
func RespondError(c *gin.Context, err error) {
	if err != nil {
		c.Error(err)
	}
	c.JSON(http.StatusOK, ErrorEnvelope(requestLang(c), err))
}

// RespondHTTPError 返回路由层错误并中止后续处理
func RespondHTTPError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(http.StatusOK, HTTPErrorEnvelope(status, detail))
}
