package model

import (
	"time"

	"gorm.io/datatypes"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamScheduled ExamStatus = "scheduled"
	ExamOngoing   ExamStatus = "ongoing"
	ExamCompleted ExamStatus = "completed"
	ExamCancelled ExamStatus = "cancelled"
)

type ExamEvent string

const (
	ExamEventPublish ExamEvent = "publish"
	ExamEventOpen    ExamEvent = "open"
	ExamEventClose   ExamEvent = "close"
	ExamEventCancel  ExamEvent = "cancel"
)

var examTransitions = transitionTable[ExamStatus, ExamEvent]{
	ExamDraft: {
		ExamEventPublish: ExamScheduled,
		ExamEventCancel:  ExamCancelled,
	},
	ExamScheduled: {
		ExamEventOpen:   ExamOngoing,
		ExamEventClose:  ExamCompleted,
		ExamEventCancel: ExamCancelled,
	},
	ExamOngoing: {
		ExamEventClose:  ExamCompleted,
		ExamEventCancel: ExamCancelled,
	},
}

func (s ExamStatus) Next(event ExamEvent) (ExamStatus, error) {
	return examTransitions.next(s, event)
}

func (s ExamStatus) IsTerminal() bool {
	return examTransitions.terminal(s)
}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay:
		return true
	}
	return false
}

// swagger:model Exam
type Exam struct {
	BaseModel
	ClassroomID     uint       `gorm:"index;not null" json:"classroom_id"`
	CreatedBy       uint       `gorm:"index;not null" json:"created_by"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	Instructions    string     `gorm:"type:text" json:"instructions"`
	DurationMinutes int        `gorm:"not null" json:"duration_minutes"`
	TotalMarks      int        `gorm:"not null" json:"total_marks"`
	PassingMarks    *int       `json:"passing_marks,omitempty"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	Status          ExamStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	IsPublished     bool       `gorm:"not null;default:false" json:"is_published"`
	Questions       []Question `gorm:"foreignKey:ExamID" json:"questions,omitempty"`
}

func (Exam) TableName() string {
	return "exams"
}

// WithinWindow 时间窗口两端均为闭区间，缺失的一端视为不限
func (e *Exam) WithinWindow(now time.Time) bool {
	if e.StartTime != nil && now.Before(*e.StartTime) {
		return false
	}
	if e.EndTime != nil && now.After(*e.EndTime) {
		return false
	}
	return true
}

// swagger:model Question
type Question struct {
	BaseModel
	ExamID        uint           `gorm:"index;not null" json:"exam_id"`
	QuestionText  string         `gorm:"type:text;not null" json:"question_text"`
	QuestionType  QuestionType   `gorm:"size:30;not null;default:'multiple_choice'" json:"question_type"`
	Marks         int            `gorm:"not null" json:"marks"`
	Options       datatypes.JSON `json:"options,omitempty"`
	CorrectAnswer *string        `gorm:"size:1000" json:"correct_answer,omitempty"`
	Explanation   string         `gorm:"type:text" json:"explanation,omitempty"`
	Position      int            `gorm:"default:0" json:"position"`
}

func (Question) TableName() string {
	return "questions"
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

type AttemptEvent string

const (
	AttemptEventSubmit  AttemptEvent = "submit"
	AttemptEventAbandon AttemptEvent = "abandon"
)

var attemptTransitions = transitionTable[AttemptStatus, AttemptEvent]{
	AttemptInProgress: {
		AttemptEventSubmit:  AttemptCompleted,
		AttemptEventAbandon: AttemptAbandoned,
	},
}

func (s AttemptStatus) Next(event AttemptEvent) (AttemptStatus, error) {
	return attemptTransitions.next(s, event)
}

func (s AttemptStatus) IsTerminal() bool {
	return attemptTransitions.terminal(s)
}

// swagger:model ExamAttempt
type ExamAttempt struct {
	BaseModel
	ExamID     uint          `gorm:"index;not null" json:"exam_id"`
	StudentID  uint          `gorm:"index;not null" json:"student_id"`
	Status     AttemptStatus `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    *time.Time    `json:"end_time"`
	Score      int           `gorm:"default:0" json:"score"`
	Percentage float64       `gorm:"default:0" json:"percentage"`
	Passed     *bool         `json:"passed,omitempty"`
	// 进行中时为 "examID:studentID"，结束后置空；唯一索引保证同一学生同一考试最多一个进行中的作答
	InProgressKey *string         `gorm:"size:64;uniqueIndex" json:"-"`
	Student       *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Exam          *Exam           `gorm:"foreignKey:ExamID" json:"exam,omitempty"`
	Answers       []StudentAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// swagger:model StudentAnswer
type StudentAnswer struct {
	BaseModel
	AttemptID    uint      `gorm:"uniqueIndex:idx_attempt_question;not null" json:"attempt_id"`
	QuestionID   uint      `gorm:"uniqueIndex:idx_attempt_question;not null" json:"question_id"`
	Answer       *string   `gorm:"type:text" json:"answer"`
	IsCorrect    bool      `gorm:"default:false" json:"is_correct"`
	MarksAwarded int       `gorm:"default:0" json:"marks_awarded"`
	Question     *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}
