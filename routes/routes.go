package routes

import (
	"time"

	"civiclink/handlers"
	"civiclink/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "http://127.0.0.1:8080", "http://localhost:5500", "http://127.0.0.1:5500", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.RateLimitMiddleware())

	// Public routes
	router.POST("/api/register", handlers.Register)
	router.POST("/api/login", handlers.Login)
	router.GET("/api/vapid-public-key", handlers.GetVapidPublicKey)

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())

	// Profile & presence
	protected.GET("/me", handlers.GetMyProfile)
	protected.PUT("/me", handlers.UpdateMyProfile)
	protected.POST("/me/heartbeat", handlers.Heartbeat)
	protected.GET("/users/:id", handlers.GetUser)

	// Channels & messages
	protected.GET("/channels", handlers.ListChannels)
	protected.GET("/channels/unread", handlers.UnreadCounts)
	protected.GET("/channels/:id/messages", handlers.GetChannelMessages)
	protected.DELETE("/channels/:id/messages/:messageId", handlers.DeleteMessage)
	protected.POST("/channels/:id/read", handlers.MarkChannelRead)
	protected.POST("/messages", handlers.SendMessage)

	// Feed
	protected.GET("/feed", handlers.GetFeed)
	protected.POST("/posts", handlers.CreatePost)
	protected.DELETE("/posts/:id", handlers.DeletePost)
	protected.POST("/posts/:id/like", handlers.ToggleLike)
	protected.GET("/posts/:id/comments", handlers.ListComments)
	protected.POST("/posts/:id/comments", handlers.AddComment)
	protected.POST("/posts/:id/comments/:commentId/like", handlers.ToggleCommentLike)

	// Districts
	protected.GET("/districts", handlers.ListDistricts)
	protected.POST("/districts", handlers.AddDistrict)

	// Reports
	protected.POST("/reports", handlers.SubmitReport)
	protected.GET("/reports", handlers.ListReports)
	protected.POST("/reports/:id/resolve", handlers.ResolveReport)
	protected.POST("/reports/:id/dismiss", handlers.DismissReport)

	// Moderation
	admin := protected.Group("/admin")
	admin.GET("/users", handlers.ListUsers)
	admin.POST("/users/:id/ban", handlers.BanUser)
	admin.POST("/users/:id/unban", handlers.UnbanUser)
	admin.POST("/users/:id/verify", handlers.ToggleUserVerification)
	admin.PUT("/users/:id/role", handlers.UpdateUserRole)
	admin.PUT("/channels/:id", handlers.UpdateChannel)
	admin.POST("/channels/:id/blocked/:userId", handlers.BlockUserFromChannel)
	admin.DELETE("/channels/:id/blocked/:userId", handlers.UnblockUserFromChannel)

	// Uploads & push
	protected.POST("/upload", handlers.UploadImage)
	protected.POST("/subscribe", handlers.SubscribePush)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
