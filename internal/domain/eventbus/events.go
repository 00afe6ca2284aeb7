package eventbus

import "time"

// 事件类型定义
const (
	EventRecognitionStarted   = "recognition:started"
	EventRecognitionCompleted = "recognition:completed"
	EventRecognitionFailed    = "recognition:failed"
)

// Topics 全部识别事件
func Topics() []string {
	return []string{EventRecognitionStarted, EventRecognitionCompleted, EventRecognitionFailed}
}

// RecognitionEventData 识别任务事件数据
type RecognitionEventData struct {
	JobID     string        `json:"job_id"`
	Kind      string        `json:"kind"`
	SourceURL string        `json:"source_url"`
	Stage     string        `json:"stage,omitempty"`
	SrtURL    string        `json:"srt_url,omitempty"`
	CueCount  int           `json:"cue_count,omitempty"`
	Code      int           `json:"code,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	At        time.Time     `json:"at"`
}
