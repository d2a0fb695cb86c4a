package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"yapper/config"
	"yapper/handlers"
	"yapper/middleware"
	"yapper/realtime"
)

// SetupRouter wires the HTTP surface: public auth and discovery routes,
// the JWT-protected API group, and the websocket endpoint.
func SetupRouter(cfg config.Config, h *handlers.Handler, hub *realtime.Hub) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// Public routes.
	authLimit := middleware.RateLimit(20, time.Minute)
	router.POST("/api/auth/signup", authLimit, h.Signup)
	router.POST("/api/auth/login", authLimit, h.Login)
	router.GET("/api/auth/google/url", h.GoogleAuthURL)
	router.GET("/api/auth/google/callback", h.GoogleCallback)
	router.POST("/api/auth/google", authLimit, h.GoogleCredential)
	router.GET("/api/notifications/vapid-public-key", h.VapidPublicKey)
	router.GET("/api/communities", h.ListCommunities)
	router.GET("/api/communities/:id", h.GetCommunity)
	router.GET("/api/posts/:id", h.GetPost)

	// Websocket endpoint authenticates via token query parameter.
	router.GET("/ws", gin.WrapF(realtime.Handler(hub, cfg.JWTSecret)))

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuth(cfg.JWTSecret))

	protected.GET("/auth/me", h.Me)

	// Communities.
	protected.POST("/communities", h.CreateCommunity)
	protected.GET("/communities/mine", h.ListMyCommunities)
	protected.POST("/communities/:id/join", h.JoinCommunity)
	protected.POST("/communities/join/:inviteCode", h.JoinByInviteCode)
	protected.DELETE("/communities/:id", h.DeleteCommunity)
	protected.DELETE("/communities/:id/posts/:postId", h.AdminDeletePost)
	protected.DELETE("/communities/:id/comments/:commentId", h.AdminDeleteComment)

	// Posts.
	protected.POST("/communities/:id/posts", h.CreatePost)
	protected.PUT("/posts/:id", h.UpdatePost)
	protected.DELETE("/posts/:id", h.DeletePost)
	protected.POST("/posts/:id/like", h.LikePost)
	protected.POST("/posts/:id/dislike", h.DislikePost)

	// Comments.
	protected.POST("/posts/:id/comments", h.CreateComment)
	protected.DELETE("/comments/:id", h.DeleteComment)

	// Community chat.
	protected.GET("/communities/:id/chat", h.GetChatMessages)
	protected.POST("/communities/:id/chat", h.CreateChatMessage)
	protected.DELETE("/chat/:messageId", h.DeleteChatMessage)

	// Push notifications.
	protected.POST("/notifications/subscribe", h.SubscribePush)
	protected.DELETE("/notifications/subscribe", h.UnsubscribePush)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route not found"})
	})

	return router
}
