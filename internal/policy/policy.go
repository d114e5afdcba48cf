// Package policy 集中处理按角色的访问控制：调用者身份、资源归属判断以及各资源的查询范围。
package policy

import (
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"

	"gorm.io/gorm"
)

// Caller 当前请求的调用者
type Caller struct {
	ID   uint
	Role model.UserRole
}

func FromClaims(claims *util.Claims) Caller {
	return Caller{ID: claims.UserID, Role: claims.Role}
}

func (c Caller) IsAdmin() bool {
	return c.Role == model.Admin
}

func (c Caller) Is(role model.UserRole) bool {
	return c.Role == role
}

// OwnsClassroom 教师本人的班级
func OwnsClassroom(c Caller, classroom *model.Classroom) bool {
	return c.Role == model.Teacher && classroom.TeacherID == c.ID
}

func CanManageClassroom(c Caller, classroom *model.Classroom) bool {
	return c.IsAdmin() || OwnsClassroom(c, classroom)
}

// CanManageExam 管理员或考试创建者
func CanManageExam(c Caller, exam *model.Exam) bool {
	return c.IsAdmin() || exam.CreatedBy == c.ID
}

func IsSessionParticipant(c Caller, session *model.CounselingSession) bool {
	return session.StudentID == c.ID || session.ExpertID == c.ID
}

func CanViewSession(c Caller, session *model.CounselingSession) bool {
	return c.IsAdmin() || IsSessionParticipant(c, session)
}

// IsAssignedExpert 会话指派的专家或管理员
func IsAssignedExpert(c Caller, session *model.CounselingSession) bool {
	return c.IsAdmin() || (c.Role == model.Expert && session.ExpertID == c.ID)
}

// CanViewChild 管理员；学生本人；已关联该学生的家长
func CanViewChild(c Caller, studentID uint, linked bool) bool {
	switch c.Role {
	case model.Admin:
		return true
	case model.Student:
		return c.ID == studentID
	case model.Parent:
		return linked
	}
	return false
}

// Scope 可直接传给 db.Scopes 的查询过滤
type Scope func(*gorm.DB) *gorm.DB

func all(db *gorm.DB) *gorm.DB { return db }

func none(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }

// activeClassroomIDs 学生处于 active 状态的班级ID子查询
func activeClassroomIDs(db *gorm.DB, studentID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&model.Enrollment{}).
		Select("classroom_id").
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentActive)
}

// ExamScope 管理员全部；教师本人创建；学生仅限已报名班级中已发布的考试；其他角色无
func ExamScope(c Caller) Scope {
	switch c.Role {
	case model.Admin:
		return all
	case model.Teacher:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("exams.created_by = ?", c.ID)
		}
	case model.Student:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("exams.is_published = ?", true).
				Where("exams.classroom_id IN (?)", activeClassroomIDs(db, c.ID))
		}
	}
	return none
}

// ClassroomScope 管理员全部；教师本人班级；学生已报名班级；其他角色无
func ClassroomScope(c Caller) Scope {
	switch c.Role {
	case model.Admin:
		return all
	case model.Teacher:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("classrooms.teacher_id = ?", c.ID)
		}
	case model.Student:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("classrooms.id IN (?)", activeClassroomIDs(db, c.ID))
		}
	}
	return none
}

// SessionScope 管理员全部；学生本人；专家被指派的会话
func SessionScope(c Caller) Scope {
	switch c.Role {
	case model.Admin:
		return all
	case model.Student:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("counseling_sessions.student_id = ?", c.ID)
		}
	case model.Expert:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("counseling_sessions.expert_id = ?", c.ID)
		}
	}
	return none
}

// AttemptScope 考试管理者可见全部作答，学生只见自己的
func AttemptScope(c Caller, exam *model.Exam) Scope {
	if CanManageExam(c, exam) {
		return all
	}
	if c.Role == model.Student {
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("exam_attempts.student_id = ?", c.ID)
		}
	}
	return none
}
