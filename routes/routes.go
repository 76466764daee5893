package routes

import (
	"breathemate/controllers"
	"breathemate/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.RouterGroup) {
	router.POST("/signup", controllers.Signup())
	router.POST("/login", controllers.Login())
	router.POST("/forgot-password", controllers.ForgotPassword())
	router.POST("/reset-password", controllers.ResetPassword())
	protected := router.Group("/")
	protected.Use(middleware.Authenticate())
	{
		// Current user (all authenticated)
		protected.GET("/me", controllers.GetMe())

		// ADMIN only
		protected.GET("/users",
			middleware.Authorize("ADMIN"),
			controllers.GetUsers(),
		)

		// USER (self) + ADMIN
		protected.GET("/user/:id",
			middleware.Authorize("ADMIN", "USER"),
			controllers.GetUser(),
		)

		// Breathing sessions (authenticated users)
		protected.POST("/breath-sessions", controllers.StartBreathSession())
		protected.GET("/breath-sessions/:id", controllers.GetBreathSession())
		protected.POST("/breath-sessions/:id/record", controllers.BeginRecording())
		protected.POST("/breath-sessions/:id/analyze", controllers.AnalyzeRecording())
		protected.POST("/breath-sessions/:id/decision", controllers.DecideContinue())
		protected.DELETE("/breath-sessions/:id", controllers.CancelBreathSession())

		// Cross-session analytics
		protected.GET("/analytics", controllers.GetAnalytics())
		protected.GET("/analytics/weekly", controllers.GetWeeklyProgress())
		protected.GET("/analytics/achievements", controllers.GetAchievements())
		protected.GET("/analytics/history", controllers.GetSessionHistory())
	}
}
