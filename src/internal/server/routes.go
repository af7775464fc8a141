package server

import (
	"taskhub-collab-svc/src/clients"
	"taskhub-collab-svc/src/internal/dependency"
	"taskhub-collab-svc/src/internal/middleware"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupAuthRoutes(router, deps)
	setupAPIRoutes(router, deps)
	setupRealtimeRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"realtime": deps.Hub.Stats(),
			},
		})
	})
}

func setupAuthRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := newAuthMiddleware(deps)
	handler := deps.UserHandler

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.POST("/refresh", handler.Refresh)
		auth.POST("/logout", authMiddleware.RequireAuth(), handler.Logout)
		auth.GET("/profile", authMiddleware.RequireAuth(), handler.GetProfile)
		auth.PUT("/profile", authMiddleware.RequireAuth(), handler.UpdateProfile)
	}
}

func setupAPIRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := newAuthMiddleware(deps)

	projects := router.Group("/api/v1/projects", authMiddleware.RequireAuth())
	{
		handler := deps.ProjectHandler
		projects.POST("", handler.Create)
		projects.GET("", handler.List)
		projects.GET("/:id", handler.Get)
		projects.PUT("/:id", handler.Update)
		projects.DELETE("/:id", handler.Delete)

		projects.GET("/:id/members", handler.Members)
		projects.POST("/:id/members", handler.AddMember)
		projects.DELETE("/:id/members/:userId", handler.RemoveMember)
		projects.PATCH("/:id/members/:userId", handler.UpdateMemberRole)

		projects.GET("/:id/tasks", deps.TaskHandler.ListByProject)
	}

	tasks := router.Group("/api/v1/tasks", authMiddleware.RequireAuth())
	{
		handler := deps.TaskHandler
		tasks.POST("", handler.Create)
		tasks.GET("/:id", handler.Get)
		tasks.PUT("/:id", handler.Update)
		tasks.PATCH("/:id/status", handler.UpdateStatus)
		tasks.DELETE("/:id", handler.Delete)

		tasks.POST("/:id/comments", deps.CommentHandler.Add)
		tasks.GET("/:id/comments", deps.CommentHandler.ListByTask)
		tasks.DELETE("/:id/comments/:commentId", deps.CommentHandler.Delete)
	}
}

func setupRealtimeRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := newAuthMiddleware(deps)

	// The websocket endpoint authenticates in-band; tokens arrive as a
	// query parameter or as the first frame.
	router.GET("/ws", deps.RealtimeHandler.Serve)

	router.GET("/api/v1/realtime/status",
		authMiddleware.RequireAuth(),
		deps.RealtimeHandler.Status)
}

func newAuthMiddleware(deps *dependency.Manager) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(
		deps.Config.Security.JwtKey,
		deps.CacheService,
		deps.SessionRepo,
	)
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
