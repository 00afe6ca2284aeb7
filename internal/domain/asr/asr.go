package asr

import (
	"context"
	"math"
	"strings"

	"github.com/bytedance/sonic"

	"autosubrt-server-go/internal/domain/subtitle"
)

// RawResult 识别引擎返回的单条结果，timestamp 与 text 中空白分隔的词按位置对齐
type RawResult struct {
	Key       string    `json:"key,omitempty"`
	Text      string    `json:"text"`
	Timestamp [][]int64 `json:"timestamp"`
}

// Recognizer 语音识别提供者
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, audioPath string) ([]RawResult, error)
}

// Extract 取第一条结果转换为 Transcript。结果为空时返回空 Transcript。
func Extract(results []RawResult) subtitle.Transcript {
	if len(results) == 0 {
		return subtitle.Transcript{}
	}
	item := results[0]
	return subtitle.NewTranscript(item.Text, item.Timestamp)
}

// DecodeResults 宽松解析识别输出。接受结果列表、单个结果对象，或包在
// result/data 字段中的两者；timestamp 也可以是 JSON 字符串。形状不符的部分被忽略，
// 只有非法 JSON 才返回错误。
func DecodeResults(data []byte) ([]RawResult, error) {
	var v interface{}
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return looseResults(v), nil
}

func looseResults(v interface{}) []RawResult {
	switch node := v.(type) {
	case []interface{}:
		out := make([]RawResult, 0, len(node))
		for _, item := range node {
			if obj, ok := item.(map[string]interface{}); ok {
				if r, ok := looseResult(obj); ok {
					out = append(out, r)
				}
			}
		}
		return out
	case map[string]interface{}:
		for _, key := range []string{"result", "data"} {
			if inner, ok := node[key]; ok {
				if _, isText := node["text"]; !isText {
					return looseResults(inner)
				}
			}
		}
		if r, ok := looseResult(node); ok {
			return []RawResult{r}
		}
	}
	return nil
}

func looseResult(obj map[string]interface{}) (RawResult, bool) {
	text, ok := obj["text"].(string)
	if !ok {
		return RawResult{}, false
	}
	r := RawResult{Text: text}
	if key, ok := obj["key"].(string); ok {
		r.Key = key
	}
	r.Timestamp = looseTimestamps(obj["timestamp"])
	return r, true
}

func looseTimestamps(v interface{}) [][]int64 {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		var parsed interface{}
		if err := sonic.UnmarshalString(s, &parsed); err != nil {
			return nil
		}
		v = parsed
	}

	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([][]int64, 0, len(list))
	for _, entry := range list {
		values, ok := entry.([]interface{})
		if !ok {
			out = append(out, nil)
			continue
		}
		ts := make([]int64, 0, len(values))
		for _, value := range values {
			n, ok := value.(float64)
			if !ok {
				break
			}
			ts = append(ts, int64(math.Round(n)))
		}
		out = append(out, ts)
	}
	return out
}
