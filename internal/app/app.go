package app

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/controller"
	"edu_platform_backend/internal/middleware"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/pkg/configwatcher"
	"edu_platform_backend/pkg/database"
	"edu_platform_backend/pkg/logger"
	"edu_platform_backend/pkg/monitoring"
	"edu_platform_backend/pkg/security"
	"edu_platform_backend/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	// ConfigFile 非空时监听该文件并热更新
	ConfigFile string

	services        *services
	whitelist       *security.OriginWhitelist
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	classroom    *repository.ClassroomRepository
	exam         *repository.ExamRepository
	attempt      *repository.AttemptRepository
	counseling   *repository.CounselingRepository
	notification *repository.NotificationRepository
	content      *repository.ContentRepository
	parent       *repository.ParentRepository
}

type services struct {
	hub          *service.NotificationHub
	auth         *service.AuthService
	user         *service.UserService
	notification *service.NotificationService
	classroom    *service.ClassroomService
	exam         *service.ExamService
	counseling   *service.CounselingService
	content      *service.ContentService
	analytics    *service.AnalyticsService
	parent       *service.ParentService
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	classroom    *controller.ClassroomController
	exam         *controller.ExamController
	counseling   *controller.CounselingController
	notification *controller.NotificationController
	content      *controller.ContentController
	analytics    *controller.AnalyticsController
	parent       *controller.ParentController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		classroom:    repository.NewClassroomRepository(db),
		exam:         repository.NewExamRepository(db),
		attempt:      repository.NewAttemptRepository(db),
		counseling:   repository.NewCounselingRepository(db),
		notification: repository.NewNotificationRepository(db),
		content:      repository.NewContentRepository(db),
		parent:       repository.NewParentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, storage service.StorageProvider) *services {
	s := &services{}

	var blacklist service.TokenBlacklist = service.NoopTokenBlacklist{}
	if a.Redis != nil {
		blacklist = service.NewRedisTokenBlacklist(a.Redis)
	}

	s.auth = service.NewAuthService(repos.user, blacklist, cfg)
	s.user = service.NewUserService(repos.user)
	s.notification = service.NewNotificationService(repos.notification, repos.user, service.NewMailer(&cfg.Mail))
	s.hub = service.NewNotificationHub(a.Redis)
	s.hub.OnRead = s.notification.MarkReadByUser
	s.hub.CheckOrigin = a.whitelist.Allowed
	s.notification.Pusher = s.hub
	s.classroom = service.NewClassroomService(repos.classroom, repos.user, repos.content, storage)
	s.exam = service.NewExamService(repos.exam, repos.attempt, repos.classroom, s.classroom, s.notification)
	s.counseling = service.NewCounselingService(repos.counseling, repos.user, service.NewMeetingService(cfg.Meeting.BaseURL), s.notification)
	s.content = service.NewContentService(repos.content, s.classroom, storage)
	s.analytics = service.NewAnalyticsService(repos.user, repos.classroom, repos.exam, repos.attempt, repos.counseling)
	s.parent = service.NewParentService(repos.parent, repos.user, repos.attempt, repos.classroom)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth, s.user),
		user:         controller.NewUserController(s.user),
		classroom:    controller.NewClassroomController(s.classroom, s.exam),
		exam:         controller.NewExamController(s.exam),
		counseling:   controller.NewCounselingController(s.counseling),
		notification: controller.NewNotificationController(s.notification, s.hub),
		content:      controller.NewContentController(s.content),
		analytics:    controller.NewAnalyticsController(s.analytics),
		parent:       controller.NewParentController(s.parent),
		health:       controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(security.CORS(a.whitelist))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 初始化日志、数据库、Redis、存储与追踪后装配应用
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		if rdb, err = database.InitRedis(&cfg.Redis); err != nil {
			return nil, err
		}
	}

	storage, err := service.NewStorageProvider(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		if tp, err = tracing.InitTracer("edu-platform", cfg.Tracing.CollectorEndpoint); err != nil {
			return nil, err
		}
	}

	app := newApp(cfg, db, rdb, storage)
	app.tracer = tp
	return app, nil
}

// newApp 只做装配，不启动任何后台任务
func newApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, storage service.StorageProvider) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		whitelist: security.NewOriginWhitelist(cfg.CORS.AllowedOrigins),
		ctx:       ctx,
		cancel:    cancel,
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, storage)
	controllers := app.initControllers(app.services)

	monitoring.Init()
	controller.RegisterValidators()

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetLevel(c.Server.Mode)
	})
	app.RegisterConfigCallback(func(c *config.Config) {
		app.whitelist.Set(c.CORS.AllowedOrigins)
	})

	return app
}

func (a *App) startBackgroundTasks() {
	go a.services.hub.Run(a.ctx)

	if a.Config.Exam.SweeperEnabled {
		interval := time.Duration(a.Config.Exam.SweepIntervalSeconds) * time.Second
		go a.services.exam.RunSweeper(a.ctx, interval)
		logger.Log.Info("Exam window sweeper started", zap.Duration("interval", interval))
	}

	if a.ConfigFile != "" {
		go func() {
			err := configwatcher.WatchConfig(a.ctx, a.ConfigFile, func(cfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(cfg)
				}
			})
			if err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

// Close 停止后台任务并释放连接
func (a *App) Close() {
	a.cancel()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	a.startBackgroundTasks()

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		a.Close()
		return err
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	a.Close()
	if err != nil {
		return err
	}

	logger.Log.Info("Server exiting")
	return nil
}
