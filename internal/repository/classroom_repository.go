package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassroomRepository struct {
	DB *gorm.DB
}

func NewClassroomRepository(db *gorm.DB) *ClassroomRepository {
	return &ClassroomRepository{DB: db}
}

func (r *ClassroomRepository) WithTx(tx *gorm.DB) *ClassroomRepository {
	return &ClassroomRepository{DB: tx}
}

func (r *ClassroomRepository) Create(ctx context.Context, classroom *model.Classroom) error {
	return translateError(r.DB.WithContext(ctx).Create(classroom).Error)
}

func (r *ClassroomRepository) FindByID(ctx context.Context, id uint) (*model.Classroom, error) {
	var classroom model.Classroom
	if err := r.DB.WithContext(ctx).First(&classroom, id).Error; err != nil {
		return nil, notFoundAs(err, util.ErrClassroomNotFound)
	}
	return &classroom, nil
}

func (r *ClassroomRepository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page, limit int) ([]model.Classroom, int64, error) {
	var classrooms []model.Classroom
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Classroom{}).Scopes(scope)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("classrooms.id DESC").Scopes(paginate(page, limit)).Find(&classrooms).Error
	return classrooms, total, err
}

func (r *ClassroomRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return translateError(r.DB.WithContext(ctx).Model(&model.Classroom{}).Where("id = ?", id).Updates(fields).Error)
}

// SetCapacity 仅当新上限不低于当前人数时生效
func (r *ClassroomRepository) SetCapacity(ctx context.Context, id uint, maxStudents int) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.Classroom{}).
		Where("id = ? AND current_students <= ?", id, maxStudents).
		Update("max_students", maxStudents)
	return result.RowsAffected > 0, result.Error
}

// IncrementStudents 原子占位，满员时返回 false
func (r *ClassroomRepository) IncrementStudents(ctx context.Context, id uint) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.Classroom{}).
		Where("id = ? AND current_students < max_students", id).
		UpdateColumn("current_students", gorm.Expr("current_students + 1"))
	return result.RowsAffected > 0, result.Error
}

func (r *ClassroomRepository) DecrementStudents(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Classroom{}).
		Where("id = ? AND current_students > 0", id).
		UpdateColumn("current_students", gorm.Expr("current_students - 1")).
		Error
}

// Delete 级联删除报名、考试（含题目、作答、答案）及课堂资料
func (r *ClassroomRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var examIDs []uint
		if err := tx.Model(&model.Exam{}).Where("classroom_id = ?", id).Pluck("id", &examIDs).Error; err != nil {
			return err
		}
		if len(examIDs) > 0 {
			if err := deleteExamRows(tx, examIDs); err != nil {
				return err
			}
		}
		if err := tx.Where("classroom_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("classroom_id = ?", id).Delete(&model.Content{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Classroom{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return util.ErrClassroomNotFound
		}
		return nil
	})
}

func (r *ClassroomRepository) FindEnrollment(ctx context.Context, classroomID, studentID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("classroom_id = ? AND student_id = ?", classroomID, studentID).
		First(&enrollment).Error
	if err != nil {
		return nil, notFoundAs(err, util.ErrEnrollmentNotFound)
	}
	return &enrollment, nil
}

// LockActiveEnrollment 在事务内对有效报名行加行锁（SQLite 忽略 FOR UPDATE）
func (r *ClassroomRepository) LockActiveEnrollment(ctx context.Context, classroomID, studentID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("classroom_id = ? AND student_id = ? AND status = ?", classroomID, studentID, model.EnrollmentActive).
		First(&enrollment).Error
	if err != nil {
		return nil, notFoundAs(err, util.ErrNotEnrolled)
	}
	return &enrollment, nil
}

func (r *ClassroomRepository) CreateEnrollment(ctx context.Context, enrollment *model.Enrollment) error {
	err := r.DB.WithContext(ctx).Create(enrollment).Error
	if IsDuplicateKey(err) {
		return util.ErrAlreadyEnrolled
	}
	return translateError(err)
}

// SetEnrollmentStatus 仅当状态仍为 from 时更新，返回是否命中
func (r *ClassroomRepository) SetEnrollmentStatus(ctx context.Context, id uint, from, to model.EnrollmentStatus) (bool, error) {
	fields := map[string]interface{}{"status": to}
	if to == model.EnrollmentActive {
		fields["enrolled_at"] = time.Now()
	}
	result := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

func (r *ClassroomRepository) IsEnrolled(ctx context.Context, classroomID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("classroom_id = ? AND student_id = ? AND status = ?", classroomID, studentID, model.EnrollmentActive).
		Count(&count).Error
	return count > 0, err
}

func (r *ClassroomRepository) ListStudents(ctx context.Context, classroomID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Student").
		Where("classroom_id = ? AND status = ?", classroomID, model.EnrollmentActive).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

// ListByStudent 学生的全部报名记录，附带班级
func (r *ClassroomRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Classroom").
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *ClassroomRepository) ActiveStudentIDs(ctx context.Context, classroomID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("classroom_id = ? AND status = ?", classroomID, model.EnrollmentActive).
		Pluck("student_id", &ids).Error
	return ids, err
}

func (r *ClassroomRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Classroom{}).Count(&count).Error
	return count, err
}
