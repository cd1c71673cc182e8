package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/blogsmith/app/cfg"
	"github.com/lysyi3m/blogsmith/app/database"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Auth-Token, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// User endpoints (authenticated by per-user API token)
	user := r.Group("/")
	user.Use(userAuthMiddleware(handler.userRepo))
	{
		user.POST("/blogs", handler.GenerateBlog)
		user.GET("/blogs", handler.ListBlogs)
		user.GET("/blogs/:id", handler.GetBlog)
		user.DELETE("/blogs/:id", handler.DeleteBlog)
		user.GET("/history", handler.GetHistory)
	}

	// Admin endpoints (conditionally enabled with service key)
	if apiAccessKey != "" {
		admin := r.Group("/api")
		admin.Use(adminAuthMiddleware(apiAccessKey))
		{
			admin.POST("/users", handler.APICreateUser)
			admin.DELETE("/users/:id", handler.APIDeleteUser)
			admin.GET("/channels", handler.APIListChannels)
			admin.POST("/channels/:name/sync", handler.APISyncChannel)
		}
		slog.Info("Admin endpoints enabled with authentication")
	} else {
		slog.Info("Admin endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"generate": "/blogs (POST, requires user token)",
			"blogs":    "/blogs (requires user token)",
			"blog":     "/blogs/<id> (requires user token)",
			"history":  "/history (requires user token)",
			"health":   "/health",
			"stats":    "/stats",
		}

		if apiAccessKey != "" {
			endpoints["users"] = "/api/users (POST, requires X-API-Key header)"
			endpoints["channels"] = "/api/channels (requires X-API-Key header)"
			endpoints["sync"] = "/api/channels/<name>/sync (POST, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "BlogSmith",
			"version":     cfg.GetVersion(),
			"description": "Turns YouTube videos into blog posts via transcription and text generation",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"admin_enabled": apiAccessKey != "",
				"user_auth":     "X-Auth-Token header or Authorization: Bearer <token>",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// userAuthMiddleware resolves the per-user API token into a User and
// stores it in the request context.
func userAuthMiddleware(userRepo database.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Auth-Token")

		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Provide a user token in X-Auth-Token header or Authorization: Bearer <token>",
			})
			c.Abort()
			return
		}

		user, err := userRepo.GetUserByToken(token)
		if err != nil {
			slog.Error("Database error", "operation", "get_user_by_token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			c.Abort()
			return
		}

		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": "The provided user token is not valid",
			})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// adminAuthMiddleware creates authentication middleware for admin endpoints
func adminAuthMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// currentUser returns the authenticated user stored by the middleware.
func currentUser(c *gin.Context) *database.User {
	value, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, _ := value.(*database.User)
	return user
}
