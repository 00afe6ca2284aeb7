package media

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// Info 下载后的媒体概要
type Info struct {
	Path       string
	Bytes      int64
	DurationMs int64
}

// Probe 读取文件大小；mp3 文件额外解析帧头估算时长，其他格式时长为 0
func Probe(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	info := Info{Path: path, Bytes: st.Size()}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		info.DurationMs = mp3DurationMs(path)
	}
	return info, nil
}

// mp3DurationMs 解码器输出为 16bit 双声道 PCM，每个采样帧 4 字节
func mp3DurationMs(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0
	}
	length := decoder.Length()
	rate := int64(decoder.SampleRate())
	if length <= 0 || rate <= 0 {
		return 0
	}
	return length / 4 * 1000 / rate
}
