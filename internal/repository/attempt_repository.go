package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// InProgressKey 进行中作答的唯一键
func InProgressKey(examID, studentID uint) *string {
	key := fmt.Sprintf("%d:%d", examID, studentID)
	return &key
}

// Create 写入进行中作答；唯一键冲突说明已有进行中的作答
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.ExamAttempt) error {
	attempt.InProgressKey = InProgressKey(attempt.ExamID, attempt.StudentID)
	err := r.DB.WithContext(ctx).Create(attempt).Error
	if IsDuplicateKey(err) {
		return util.ErrAttemptInProgress
	}
	return translateError(err)
}

func (r *AttemptRepository) FindByID(ctx context.Context, id uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	if err := r.DB.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, notFoundAs(err, util.NewNotFound("attempt not found"))
	}
	return &attempt, nil
}

// LockInProgress 锁定学生在该考试下进行中的作答
func (r *AttemptRepository) LockInProgress(ctx context.Context, examID, studentID uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("exam_id = ? AND student_id = ? AND status = ?", examID, studentID, model.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, notFoundAs(err, util.ErrNoOngoingAttempt)
	}
	return &attempt, nil
}

func (r *AttemptRepository) CreateAnswers(ctx context.Context, answers []model.StudentAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return translateError(r.DB.WithContext(ctx).Create(&answers).Error)
}

// Finish 结束进行中的作答并清空唯一键；作答已不在进行中时返回 false
func (r *AttemptRepository) Finish(ctx context.Context, attempt *model.ExamAttempt) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.ExamAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":          attempt.Status,
			"end_time":        attempt.EndTime,
			"score":           attempt.Score,
			"percentage":      attempt.Percentage,
			"passed":          attempt.Passed,
			"in_progress_key": nil,
		})
	return result.RowsAffected > 0, translateError(result.Error)
}

// ListByExam 按作答范围列出，withAnswers 时附带答案及题目
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uint, scope func(*gorm.DB) *gorm.DB, status model.AttemptStatus, withAnswers bool) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	query := r.DB.WithContext(ctx).Model(&model.ExamAttempt{}).
		Scopes(scope).
		Preload("Student").
		Where("exam_attempts.exam_id = ?", examID)
	if status != "" {
		query = query.Where("exam_attempts.status = ?", status)
	}
	if withAnswers {
		query = query.Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).Preload("Answers.Question")
	}
	err := query.Order("exam_attempts.id ASC").Find(&attempts).Error
	return attempts, err
}

// ListByStudent 学生最近结束的作答，附带考试信息
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID uint, limit int) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.WithContext(ctx).
		Preload("Exam").
		Where("student_id = ? AND status <> ?", studentID, model.AttemptInProgress).
		Order("start_time DESC, id DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountInProgress(ctx context.Context, examID, studentID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ExamAttempt{}).
		Where("exam_id = ? AND student_id = ? AND status = ?", examID, studentID, model.AttemptInProgress).
		Count(&count).Error
	return count, err
}

// HasCompleted 学生在该考试下是否已有完成的作答
func (r *AttemptRepository) HasCompleted(ctx context.Context, examID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ExamAttempt{}).
		Where("exam_id = ? AND student_id = ? AND status = ?", examID, studentID, model.AttemptCompleted).
		Count(&count).Error
	return count > 0, err
}

type AttemptStats struct {
	Completed         int64   `json:"completed_attempts"`
	AveragePercentage float64 `json:"average_percentage"`
}

func (r *AttemptRepository) CompletedStats(ctx context.Context) (*AttemptStats, error) {
	var stats AttemptStats
	err := r.DB.WithContext(ctx).Model(&model.ExamAttempt{}).
		Select("COUNT(*) AS completed, COALESCE(AVG(percentage), 0) AS average_percentage").
		Where("status = ?", model.AttemptCompleted).
		Scan(&stats).Error
	return &stats, err
}

// AbandonInProgress 将考试下所有进行中的作答标记为 abandoned
func (r *AttemptRepository) AbandonInProgress(ctx context.Context, examID uint) (int64, error) {
	now := time.Now()
	result := r.DB.WithContext(ctx).Model(&model.ExamAttempt{}).
		Where("exam_id = ? AND status = ?", examID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":          model.AttemptAbandoned,
			"end_time":        now,
			"in_progress_key": nil,
		})
	return result.RowsAffected, result.Error
}
