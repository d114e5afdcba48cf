package model

type ContentType string

const (
	ContentPDF   ContentType = "pdf"
	ContentEbook ContentType = "ebook"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
	ContentOther ContentType = "other"
)

// swagger:model Content
type Content struct {
	BaseModel
	ClassroomID     uint        `gorm:"index;not null" json:"classroom_id"`
	UploadedBy      uint        `gorm:"index;not null" json:"uploaded_by"`
	Title           string      `gorm:"size:255;not null" json:"title"`
	Description     string      `gorm:"type:text" json:"description"`
	ContentType     ContentType `gorm:"size:20;not null" json:"content_type"`
	FileURL         string      `gorm:"size:500;not null" json:"file_url"`
	FileKey         string      `gorm:"size:255" json:"file_key"`
	FileSize        int64       `json:"file_size"`
	DurationSeconds int         `json:"duration_seconds,omitempty"`
}

func (Content) TableName() string {
	return "library_content"
}
