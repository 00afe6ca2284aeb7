package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	httptransport "autosubrt-server-go/internal/transport/http"
)

// errReported 信封已输出，main 不再重复打印错误
var errReported = errors.New("failed")

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeEnvelope 按 HTTP 接口相同的信封格式输出结果，失败时返回 errReported
func writeEnvelope(cmd *cobra.Command, lang string, data any, err error) error {
	lang = httptransport.ResolveLang(lang)
	if err != nil {
		if werr := writeJSON(cmd, httptransport.ErrorEnvelope(lang, err)); werr != nil {
			return werr
		}
		return errReported
	}
	return writeJSON(cmd, httptransport.SuccessEnvelope(lang, data))
}
