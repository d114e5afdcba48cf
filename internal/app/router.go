package app

import (
	"edu_platform_backend/docs"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/middleware"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret, a.services.auth), middleware.ActivityMiddleware(repos.user))
	{
		a.registerAccountRoutes(authGroup, c)
		a.registerClassroomRoutes(authGroup, c)
		a.registerExamRoutes(authGroup, c)
		a.registerCounselingRoutes(authGroup, c)
		a.registerParentRoutes(authGroup, c)

		// 3. 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerAccountRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/logout", c.auth.Logout)
	group.GET("/profile", c.auth.GetProfile)
	group.PUT("/profile", c.auth.UpdateProfile)

	group.GET("/notifications", c.notification.ListNotifications)
	group.PUT("/notifications/:id/read", c.notification.MarkRead)
	group.GET("/notifications/ws", c.notification.Stream)
}

func (a *App) registerClassroomRoutes(group *gin.RouterGroup, c *controllers) {
	teacherOnly := middleware.RoleMiddleware(model.Teacher)

	classrooms := group.Group("/classrooms")
	{
		classrooms.GET("", c.classroom.ListClassrooms)
		classrooms.GET("/:id", c.classroom.GetClassroom)
		classrooms.GET("/:id/exams", c.classroom.ListClassroomExams)
		classrooms.GET("/:id/contents", c.content.ListContents)
		classrooms.POST("/:id/join", middleware.RoleMiddleware(model.Student), c.classroom.JoinClassroom)
		classrooms.POST("/:id/leave", middleware.RoleMiddleware(model.Student), c.classroom.LeaveClassroom)

		// 教师相关接口
		classrooms.POST("", teacherOnly, c.classroom.CreateClassroom)
		classrooms.PUT("/:id", teacherOnly, c.classroom.UpdateClassroom)
		classrooms.DELETE("/:id", teacherOnly, c.classroom.DeleteClassroom)
		classrooms.GET("/:id/students", teacherOnly, c.classroom.ListStudents)
		classrooms.POST("/:id/contents", teacherOnly, c.content.UploadContent)
	}
	group.DELETE("/contents/:id", teacherOnly, c.content.DeleteContent)
}

func (a *App) registerExamRoutes(group *gin.RouterGroup, c *controllers) {
	teacherOnly := middleware.RoleMiddleware(model.Teacher)
	studentOnly := middleware.RoleMiddleware(model.Student)

	exams := group.Group("/exams")
	{
		exams.GET("", c.exam.ListExams)
		exams.GET("/:id", c.exam.GetExam)
		exams.GET("/:id/questions", c.exam.GetQuestions)
		exams.GET("/:id/attempts", c.exam.ListAttempts)
		exams.GET("/:id/results", c.exam.GetResults)

		exams.POST("/:id/start", studentOnly, c.exam.StartExam)
		exams.POST("/:id/submit", studentOnly, c.exam.SubmitExam)

		exams.POST("", teacherOnly, c.exam.CreateExam)
		exams.PUT("/:id", teacherOnly, c.exam.UpdateExam)
		exams.DELETE("/:id", teacherOnly, c.exam.DeleteExam)
		exams.POST("/:id/publish", teacherOnly, c.exam.PublishExam)
		exams.POST("/:id/questions", teacherOnly, c.exam.AddQuestion)
		exams.DELETE("/:id/questions/:questionId", teacherOnly, c.exam.DeleteQuestion)

		exams.POST("/:id/cancel", middleware.RoleMiddleware(), c.exam.CancelExam)
	}
}

func (a *App) registerCounselingRoutes(group *gin.RouterGroup, c *controllers) {
	expertOnly := middleware.RoleMiddleware(model.Expert)

	counseling := group.Group("/counseling")
	{
		counseling.POST("/sessions", middleware.RoleMiddleware(model.Student), c.counseling.RequestSession)
		counseling.GET("/sessions", c.counseling.ListSessions)
		counseling.GET("/sessions/:id", c.counseling.GetSession)
		counseling.PUT("/sessions/:id", c.counseling.UpdateSession)
		counseling.POST("/sessions/:id/cancel", c.counseling.CancelSession)

		counseling.POST("/sessions/:id/confirm", expertOnly, c.counseling.ConfirmSession)
		counseling.POST("/sessions/:id/complete", expertOnly, c.counseling.CompleteSession)
		counseling.POST("/meeting-link", expertOnly, c.counseling.CreateMeetingLink)
	}
}

func (a *App) registerParentRoutes(group *gin.RouterGroup, c *controllers) {
	parent := group.Group("/parent")
	parent.Use(middleware.RoleMiddleware(model.Parent))
	{
		parent.GET("/children", c.parent.ListChildren)
		parent.GET("/children/:childId/progress", c.parent.GetChildProgress)
	}
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	admin := group.Group("/admin")
	admin.Use(middleware.RoleMiddleware())
	{
		admin.GET("/users", c.user.ListUsers)
		admin.GET("/users/:id", c.user.GetUser)
		admin.PUT("/users/:id/role", c.user.SetRole)
		admin.PUT("/users/:id/status", c.user.SetDisabled)
		admin.POST("/parents/:id/children", c.parent.LinkChild)
		admin.DELETE("/parents/:id/children/:childId", c.parent.UnlinkChild)
		admin.GET("/analytics", c.analytics.GetOverview)
	}
}
