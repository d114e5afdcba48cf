package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Expert  UserRole = "expert"
	Parent  UserRole = "parent"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Teacher, Expert, Parent, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	FirstName  string     `gorm:"size:100;not null" json:"first_name"`
	LastName   string     `gorm:"size:100;not null" json:"last_name"`
	Email      string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password   *string    `gorm:"size:255" json:"-"` // OAuth 账号为空
	Role       UserRole   `gorm:"size:20;not null;index" json:"role"`
	Phone      string     `gorm:"size:20" json:"phone_number,omitempty"`
	AvatarURL  string     `gorm:"size:255" json:"profile_picture_url,omitempty"`
	IsVerified bool       `gorm:"default:false" json:"is_verified"`
	Disabled   bool       `gorm:"default:false" json:"disabled"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
