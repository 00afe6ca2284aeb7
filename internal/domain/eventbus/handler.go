package eventbus

import (
	"autosubrt-server-go/internal/platform/logging"
)

const logTag = "事件"

// LogHandler 把识别事件写入日志
type LogHandler struct {
	logger *logging.Logger
}

func NewLogHandler(logger *logging.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// Handle 处理事件
func (h *LogHandler) Handle(eventType string, data RecognitionEventData) {
	switch eventType {
	case EventRecognitionStarted:
		h.logger.InfoTag(logTag, "识别开始: job=%s kind=%s url=%s", data.JobID, data.Kind, data.SourceURL)
	case EventRecognitionCompleted:
		h.logger.InfoTag(logTag, "识别完成: job=%s kind=%s cues=%d srt=%s elapsed=%s",
			data.JobID, data.Kind, data.CueCount, data.SrtURL, data.Elapsed)
	case EventRecognitionFailed:
		h.logger.WarnTag(logTag, "识别失败: job=%s kind=%s stage=%s code=%d detail=%s",
			data.JobID, data.Kind, data.Stage, data.Code, data.Detail)
	default:
		h.logger.DebugTag(logTag, "未处理的事件类型: %s", eventType)
	}
}

// SetupEventHandlers 为全部识别事件注册日志处理器
func SetupEventHandlers(bus *AsyncEventBus, handler *LogHandler) error {
	for _, topic := range Topics() {
		topic := topic
		if err := bus.Subscribe(topic, func(data RecognitionEventData) {
			handler.Handle(topic, data)
		}); err != nil {
			return err
		}
	}
	return nil
}
