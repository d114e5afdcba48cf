package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) WithTx(tx *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: tx}
}

// ExamFilter 列表筛选条件
type ExamFilter struct {
	ClassroomID uint
	Status      model.ExamStatus
	Page        int
	Limit       int
}

// Create 同时写入 exam.Questions
func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	return translateError(r.DB.WithContext(ctx).Create(exam).Error)
}

func (r *ExamRepository) FindByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.DB.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, notFoundAs(err, util.ErrExamNotFound)
	}
	return &exam, nil
}

// FindByIDForUpdate 事务内锁定考试行
func (r *ExamRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&exam, id).Error
	if err != nil {
		return nil, notFoundAs(err, util.ErrExamNotFound)
	}
	return &exam, nil
}

func (r *ExamRepository) FindWithQuestions(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&exam, id).Error
	if err != nil {
		return nil, notFoundAs(err, util.ErrExamNotFound)
	}
	return &exam, nil
}

func (r *ExamRepository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ExamFilter) ([]model.Exam, int64, error) {
	var exams []model.Exam
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Exam{}).Scopes(scope)
	if filter.ClassroomID != 0 {
		query = query.Where("exams.classroom_id = ?", filter.ClassroomID)
	}
	if filter.Status != "" {
		query = query.Where("exams.status = ?", filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("exams.id DESC").Scopes(paginate(filter.Page, filter.Limit)).Find(&exams).Error
	return exams, total, err
}

// Visible 考试是否落在给定的查询范围内
func (r *ExamRepository) Visible(ctx context.Context, id uint, scope func(*gorm.DB) *gorm.DB) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Exam{}).Scopes(scope).Where("exams.id = ?", id).Count(&count).Error
	return count > 0, err
}

// Update 只更新考试本身，不级联题目
func (r *ExamRepository) Update(ctx context.Context, exam *model.Exam) error {
	return translateError(r.DB.WithContext(ctx).Omit(clause.Associations).Save(exam).Error)
}

// Transition 条件更新：仅当当前状态为 from 时迁移到 to
func (r *ExamRepository) Transition(ctx context.Context, id uint, from, to model.ExamStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected > 0, translateError(result.Error)
}

func (r *ExamRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Exam{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return util.ErrExamNotFound
		}
		return deleteExamRows(tx, []uint{id})
	})
}

// deleteExamRows 按外键依赖顺序删除答案、作答、题目与考试
func deleteExamRows(tx *gorm.DB, examIDs []uint) error {
	attemptIDs := tx.Model(&model.ExamAttempt{}).Select("id").Where("exam_id IN ?", examIDs)
	if err := tx.Where("attempt_id IN (?)", attemptIDs).Delete(&model.StudentAnswer{}).Error; err != nil {
		return err
	}
	if err := tx.Where("exam_id IN ?", examIDs).Delete(&model.ExamAttempt{}).Error; err != nil {
		return err
	}
	if err := tx.Where("exam_id IN ?", examIDs).Delete(&model.Question{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", examIDs).Delete(&model.Exam{}).Error
}

func (r *ExamRepository) ListQuestions(ctx context.Context, examID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("position ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *ExamRepository) CountQuestions(ctx context.Context, examID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).Where("exam_id = ?", examID).Count(&count).Error
	return count, err
}

func (r *ExamRepository) AddQuestion(ctx context.Context, question *model.Question) error {
	return translateError(r.DB.WithContext(ctx).Create(question).Error)
}

func (r *ExamRepository) DeleteQuestion(ctx context.Context, examID, questionID uint) error {
	result := r.DB.WithContext(ctx).Where("exam_id = ?", examID).Delete(&model.Question{}, questionID)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return util.ErrQuestionNotFound
	}
	return nil
}

// ReplaceQuestions 删除旧题目并写入新题目，调用方负责事务
func (r *ExamRepository) ReplaceQuestions(ctx context.Context, examID uint, questions []model.Question) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("exam_id = ?", examID).Delete(&model.Question{}).Error; err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}
	for i := range questions {
		questions[i].ID = 0
		questions[i].ExamID = examID
	}
	return translateError(db.Create(&questions).Error)
}

// DueToOpen 已到开始时间仍为 scheduled 的考试
func (r *ExamRepository) DueToOpen(ctx context.Context, now time.Time) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.WithContext(ctx).
		Where("status = ? AND start_time IS NOT NULL AND start_time <= ?", model.ExamScheduled, now).
		Where("end_time IS NULL OR end_time >= ?", now).
		Find(&exams).Error
	return exams, err
}

// DueToClose 已过结束时间但尚未结束的考试
func (r *ExamRepository) DueToClose(ctx context.Context, now time.Time) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.WithContext(ctx).
		Where("status IN ? AND end_time IS NOT NULL AND end_time < ?", []model.ExamStatus{model.ExamScheduled, model.ExamOngoing}, now).
		Find(&exams).Error
	return exams, err
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (r *ExamRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}
