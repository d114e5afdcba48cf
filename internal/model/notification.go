package model

type NotificationType string

const (
	NotifyExamPublished    NotificationType = "exam_published"
	NotifyExamGraded       NotificationType = "exam_graded"
	NotifyExamCancelled    NotificationType = "exam_cancelled"
	NotifySessionRequested NotificationType = "session_requested"
	NotifySessionConfirmed NotificationType = "session_confirmed"
	NotifySessionCompleted NotificationType = "session_completed"
	NotifySessionCancelled NotificationType = "session_cancelled"
)

// swagger:model Notification
type Notification struct {
	BaseModel
	UserID  uint             `gorm:"index;not null" json:"user_id"`
	Type    NotificationType `gorm:"size:40;not null" json:"type"`
	Title   string           `gorm:"size:255;not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	IsRead  bool             `gorm:"default:false" json:"is_read"`
}

func (Notification) TableName() string {
	return "notifications"
}
