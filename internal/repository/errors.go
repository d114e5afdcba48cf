package repository

import (
	"edu_platform_backend/internal/util"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError 将驱动层约束错误映射为业务错误分类，其余错误原样返回
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case IsDuplicateKey(err):
		return util.NewConflict("duplicate record")
	case isForeignKeyViolation(err):
		return util.NewValidation("referenced record does not exist")
	}
	return err
}

// IsDuplicateKey 唯一约束冲突，兼容 MySQL / PostgreSQL / SQLite
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoReferencedRow
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// notFoundAs 记录不存在时返回指定的业务错误
func notFoundAs(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return translateError(err)
}
