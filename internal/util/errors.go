package util

import "errors"

// ErrorKind 业务错误分类，对应 HTTP 状态码
type ErrorKind string

const (
	KindNotFound        ErrorKind = "NotFound"
	KindForbidden       ErrorKind = "Forbidden"
	KindInvalidState    ErrorKind = "InvalidState"
	KindConflict        ErrorKind = "Conflict"
	KindValidation      ErrorKind = "ValidationError"
	KindUnauthenticated ErrorKind = "Unauthenticated"
)

// AppError 带分类与可机读原因的业务错误
type AppError struct {
	Kind   ErrorKind
	Reason string
}

func (e *AppError) Error() string {
	return string(e.Kind) + ": " + e.Reason
}

func newAppError(kind ErrorKind, reason string) *AppError {
	return &AppError{Kind: kind, Reason: reason}
}

func NewNotFound(reason string) *AppError        { return newAppError(KindNotFound, reason) }
func NewForbidden(reason string) *AppError       { return newAppError(KindForbidden, reason) }
func NewInvalidState(reason string) *AppError    { return newAppError(KindInvalidState, reason) }
func NewConflict(reason string) *AppError        { return newAppError(KindConflict, reason) }
func NewValidation(reason string) *AppError      { return newAppError(KindValidation, reason) }
func NewUnauthenticated(reason string) *AppError { return newAppError(KindUnauthenticated, reason) }

// KindOf 返回错误分类，非业务错误返回空字符串
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

var (
	ErrUserNotFound       = NewNotFound("user not found")
	ErrEmailRegistered    = NewConflict("email already registered")
	ErrInvalidCredentials = NewUnauthenticated("invalid credentials")
	ErrAccountDisabled    = NewForbidden("account disabled")
	ErrPermissionDenied   = NewForbidden("permission denied")

	ErrClassroomNotFound  = NewNotFound("classroom not found")
	ErrClassroomFull      = NewInvalidState("full")
	ErrClassroomInactive  = NewInvalidState("classroom inactive")
	ErrAlreadyEnrolled    = NewConflict("already enrolled")
	ErrEnrollmentNotFound = NewNotFound("enrollment not found")
	ErrCapacityTooSmall   = NewInvalidState("max_students below current enrollment")

	ErrExamNotFound         = NewNotFound("exam not found")
	ErrQuestionNotFound     = NewNotFound("question not found")
	ErrExamNotPublished     = NewInvalidState("not published")
	ErrExamAlreadyPublished = NewInvalidState("exam already published")
	ErrExamCancelled        = NewInvalidState("exam cancelled")
	ErrExamNoQuestions      = NewInvalidState("no questions")
	ErrOutsideExamWindow    = NewInvalidState("outside exam window")
	ErrNotEnrolled          = NewForbidden("not enrolled")
	ErrAttemptInProgress    = NewConflict("attempt already in progress")
	ErrNoOngoingAttempt     = NewInvalidState("no ongoing attempt")

	ErrSessionNotFound    = NewNotFound("session not found")
	ErrExpertNotFound     = NewNotFound("expert not found")
	ErrStudentNotesOnly   = NewForbidden("students can only update session notes")
	ErrInvalidMeetingLink = NewValidation("invalid meeting link")

	ErrNotificationNotFound = NewNotFound("notification not found")
	ErrContentNotFound      = NewNotFound("content not found")
	ErrInvalidFileType      = NewValidation("invalid file type")

	ErrChildNotFound      = NewNotFound("child not found")
	ErrChildAlreadyLinked = NewConflict("child already linked")
)
