package util

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaInfo 课堂音视频资料的探测结果
type MediaInfo struct {
	DurationSeconds int
	HasVideo        bool
	HasAudio        bool
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeMedia 调用 ffprobe 读取本地文件的时长
func ProbeMedia(path string) (*MediaInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe([]byte(out))
}

// parseProbe 优先取 format 时长，缺失时取最长的流
func parseProbe(raw []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	longest := 0.0
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > longest {
			longest = d
		}
	}

	seconds := longest
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
		seconds = d
	}
	info.DurationSeconds = int(math.Round(seconds))
	return info, nil
}
