package util

const TimeFormat = "2006-01-02 15:04:05"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// gin.Context 中的键
const (
	UserContextKey = "user"
	TokenKey       = "token"
	RequestIDKey   = "request_id"
)

// 文件上传相关常量
const (
	MimeVideo = "video/"
	MimeAudio = "audio/"
	MimePDF   = "application/pdf"
	MimeEpub  = "application/epub+zip"
)
