package model

// swagger:model ParentLink
type ParentLink struct {
	BaseModel
	ParentID  uint  `gorm:"uniqueIndex:idx_parent_student;not null" json:"parent_id"`
	StudentID uint  `gorm:"uniqueIndex:idx_parent_student;index;not null" json:"student_id"`
	Student   *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (ParentLink) TableName() string {
	return "parent_students"
}
