package model

import "time"

type SessionStatus string

const (
	SessionRequested SessionStatus = "requested"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

type SessionEvent string

const (
	SessionEventConfirm  SessionEvent = "confirm"
	SessionEventComplete SessionEvent = "complete"
	SessionEventCancel   SessionEvent = "cancel"
)

var sessionTransitions = transitionTable[SessionStatus, SessionEvent]{
	SessionRequested: {
		SessionEventConfirm: SessionConfirmed,
		SessionEventCancel:  SessionCancelled,
	},
	SessionConfirmed: {
		SessionEventComplete: SessionCompleted,
		SessionEventCancel:   SessionCancelled,
	},
}

func (s SessionStatus) Next(event SessionEvent) (SessionStatus, error) {
	return sessionTransitions.next(s, event)
}

func (s SessionStatus) IsTerminal() bool {
	return sessionTransitions.terminal(s)
}

// swagger:model CounselingSession
type CounselingSession struct {
	BaseModel
	ExpertID        uint           `gorm:"index;not null" json:"expert_id"`
	StudentID       uint           `gorm:"index;not null" json:"student_id"`
	ScheduledTime   time.Time      `json:"scheduled_time"`
	DurationMinutes int            `gorm:"default:60" json:"duration_minutes"`
	Notes           string         `gorm:"type:text" json:"notes"`
	Status          SessionStatus  `gorm:"size:20;not null;default:'requested';index" json:"status"`
	MeetingLink     string         `gorm:"size:255" json:"meeting_link,omitempty"`
	Expert          *User          `gorm:"foreignKey:ExpertID" json:"expert,omitempty"`
	Student         *User          `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Report          *SessionReport `gorm:"foreignKey:SessionID" json:"report,omitempty"`
}

func (CounselingSession) TableName() string {
	return "counseling_sessions"
}

func (s *CounselingSession) EndTime() time.Time {
	return s.ScheduledTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// swagger:model SessionReport
type SessionReport struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       uint      `gorm:"uniqueIndex;not null" json:"session_id"`
	ExpertID        uint      `gorm:"index;not null" json:"expert_id"`
	ReportText      string    `gorm:"type:text;not null" json:"report_text"`
	Recommendations string    `gorm:"type:text" json:"recommendations,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

func (SessionReport) TableName() string {
	return "session_reports"
}
