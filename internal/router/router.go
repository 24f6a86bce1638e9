package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alarmclock/backend/internal/handler"
	"alarmclock/backend/internal/middleware"
	"alarmclock/backend/internal/service"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Alarm  *handler.AlarmHandler
	System *handler.SystemHandler
}

func New(
	authService *service.AuthService,
	handlers Handlers,
	corsOrigins []string,
	triggerKey string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)

	alarms := api.Group("/alarms")
	alarms.Use(middleware.Auth(authService))
	alarms.GET("", handlers.Alarm.List)
	alarms.POST("", handlers.Alarm.Create)
	alarms.GET("/calendar.ics", handlers.Alarm.Calendar)
	alarms.GET("/:id", handlers.Alarm.Get)
	alarms.PUT("/:id", handlers.Alarm.Update)
	alarms.DELETE("/:id", handlers.Alarm.Delete)
	alarms.POST("/:id/enable", handlers.Alarm.Enable)
	alarms.POST("/:id/disable", handlers.Alarm.Disable)
	alarms.POST("/:id/snooze", handlers.Alarm.Snooze)
	alarms.POST("/:id/dismiss", handlers.Alarm.Dismiss)
	alarms.POST("/:id/skip-next", handlers.Alarm.SkipNext)
	alarms.GET("/:id/history", handlers.Alarm.GetHistory)

	authed := api.Group("")
	authed.Use(middleware.Auth(authService))
	authed.GET("/me", handlers.Auth.Me)
	authed.PUT("/me/preferences", handlers.Auth.UpdatePreferences)
	authed.GET("/schedule/status", handlers.Alarm.Status)
	authed.POST("/nfc/scans", handlers.Alarm.ScanNFC)

	system := api.Group("/system")
	system.Use(middleware.TriggerKey(triggerKey))
	system.POST("/triggers", handlers.System.Trigger)

	return engine
}
