package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounselingRepository struct {
	DB *gorm.DB
}

func NewCounselingRepository(db *gorm.DB) *CounselingRepository {
	return &CounselingRepository{DB: db}
}

func (r *CounselingRepository) WithTx(tx *gorm.DB) *CounselingRepository {
	return &CounselingRepository{DB: tx}
}

func (r *CounselingRepository) Create(ctx context.Context, session *model.CounselingSession) error {
	return translateError(r.DB.WithContext(ctx).Omit(clause.Associations).Create(session).Error)
}

func (r *CounselingRepository) FindByID(ctx context.Context, id uint) (*model.CounselingSession, error) {
	var session model.CounselingSession
	err := r.DB.WithContext(ctx).
		Preload("Expert").
		Preload("Student").
		Preload("Report").
		First(&session, id).Error
	if err != nil {
		return nil, notFoundAs(err, util.ErrSessionNotFound)
	}
	return &session, nil
}

func (r *CounselingRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.CounselingSession, error) {
	var session model.CounselingSession
	err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, id).Error
	if err != nil {
		return nil, notFoundAs(err, util.ErrSessionNotFound)
	}
	return &session, nil
}

func (r *CounselingRepository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, status model.SessionStatus, page, limit int) ([]model.CounselingSession, int64, error) {
	var sessions []model.CounselingSession
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.CounselingSession{}).Scopes(scope)
	if status != "" {
		query = query.Where("counseling_sessions.status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Expert").Preload("Student").
		Order("counseling_sessions.scheduled_time DESC").
		Scopes(paginate(page, limit)).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *CounselingRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return translateError(r.DB.WithContext(ctx).Model(&model.CounselingSession{}).Where("id = ?", id).Updates(fields).Error)
}

// Transition 条件更新：仅当当前状态为 from 时迁移到 to
func (r *CounselingRepository) Transition(ctx context.Context, id uint, from, to model.SessionStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.DB.WithContext(ctx).Model(&model.CounselingSession{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected > 0, translateError(result.Error)
}

func (r *CounselingRepository) CreateReport(ctx context.Context, report *model.SessionReport) error {
	err := r.DB.WithContext(ctx).Create(report).Error
	if IsDuplicateKey(err) {
		return util.NewConflict("session report already submitted")
	}
	return translateError(err)
}

func (r *CounselingRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.DB.WithContext(ctx).Model(&model.CounselingSession{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}
