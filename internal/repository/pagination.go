package repository

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// paginate 页码从 1 开始；非法的 page/limit 取默认值
func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}
