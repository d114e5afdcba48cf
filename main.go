// @title Edu Platform 后端 API
// @version 1.0
// @description 教育平台后端服务：教室、考试、心理咨询与通知。
// @termsOfService http://swagger.io/terms/

// @contact.name API支持
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"edu_platform_backend/internal/app"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/pkg/database"
	"edu_platform_backend/pkg/logger"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configDir string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "edu-platform",
		Short:        "Edu Platform 后端服务",
		SilenceUsage: true,
		RunE:         runServe,
	}
	cmd.PersistentFlags().StringVar(&configDir, "config", "configs", "配置文件目录（包含 config.yaml）")

	cmd.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	application.ConfigFile = filepath.Join(configDir, "config.yaml")
	return application.Run()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移后退出",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.InitLogger(cfg)
			defer logger.Log.Sync()

			db, err := database.InitDB(&cfg.Database)
			if err != nil {
				logger.Log.Error("Migration failed", zap.Error(err))
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, password, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "创建管理员账号",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.InitLogger(cfg)
			defer logger.Log.Sync()

			db, err := database.InitDB(&cfg.Database)
			if err != nil {
				return err
			}

			auth := service.NewAuthService(repository.NewUserRepository(db), service.NoopTokenBlacklist{}, cfg)
			user, err := auth.CreateAdmin(context.Background(), firstName, lastName, email, password)
			if err != nil {
				return err
			}
			logger.Log.Info("Admin created", zap.Uint("id", user.ID), zap.String("email", user.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "管理员邮箱")
	cmd.Flags().StringVar(&password, "password", "", "管理员密码")
	cmd.Flags().StringVar(&firstName, "first-name", "Admin", "名")
	cmd.Flags().StringVar(&lastName, "last-name", "", "姓")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
