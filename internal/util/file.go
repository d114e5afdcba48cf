package util

import (
	"edu_platform_backend/internal/model"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	// 检测 MIME 类型
	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, fmt.Errorf("%w: %s", ErrInvalidFileType, mimeType)
}

// IsVideo 检测是否为视频
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeVideo) || mimeType == "application/x-mpegURL"
}

// ContentTypeOf 根据嗅探到的 MIME 与扩展名归类课堂资料
func ContentTypeOf(mimeType, filename string) model.ContentType {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case mimeType == MimePDF:
		return model.ContentPDF
	case IsVideo(mimeType):
		return model.ContentVideo
	case strings.HasPrefix(mimeType, MimeAudio):
		return model.ContentAudio
	case ext == ".epub" || ext == ".mobi":
		return model.ContentEbook
	}
	return model.ContentOther
}
