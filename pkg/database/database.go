package database

import (
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/pkg/logger"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models 参与自动迁移的全部实体，顺序即建表顺序
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Classroom{},
		&model.Enrollment{},
		&model.Exam{},
		&model.Question{},
		&model.ExamAttempt{},
		&model.StudentAnswer{},
		&model.CounselingSession{},
		&model.SessionReport{},
		&model.Notification{},
		&model.Content{},
		&model.ParentLink{},
	}
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DBName), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Open 建立连接但不迁移
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Warn
	if cfg.LogSQL {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// SQLite 单写者，内存库也依赖同一连接
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}

	logger.Log.Info("Database connection established", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	logger.Log.Info("Database migration completed")
	return nil
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
