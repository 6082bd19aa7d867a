package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
	"github.com/kumbo-archives/archives-client/pkg/logger"
	"github.com/kumbo-archives/archives-client/pkg/middleware/cors"
	"github.com/kumbo-archives/archives-client/pkg/middleware/requestid"
)

// Server is the in-memory fixture backend used for development and tests.
type Server struct {
	state     *State
	tokens    *TokenIssuer
	logger    *zap.Logger
	validator *validator.Validate
	metrics   *metrics

	prefix         string
	allowedOrigins []string
}

// ServerParams groups the dependencies for NewServer.
type ServerParams struct {
	State          *State
	Tokens         *TokenIssuer
	Logger         *zap.Logger
	APIPrefix      string
	AllowedOrigins []string
}

// NewServer constructs a fixture server around the given state.
func NewServer(p ServerParams) *Server {
	if p.State == nil {
		p.State = NewState()
	}
	if p.Tokens == nil {
		p.Tokens = NewTokenIssuer("kumbo-dev-secret", 0)
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.APIPrefix == "" {
		p.APIPrefix = "/api/v1"
	}
	return &Server{
		state:          p.State,
		tokens:         p.Tokens,
		logger:         p.Logger,
		validator:      validator.New(),
		metrics:        newMetrics(),
		prefix:         p.APIPrefix,
		allowedOrigins: p.AllowedOrigins,
	}
}

// Router builds the gin engine with all routes and middleware mounted.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(cors.New(s.allowedOrigins))
	router.Use(logger.GinMiddleware(s.logger))
	router.Use(s.metrics.middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", s.metrics.handler())

	api := router.Group(s.prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/register", s.register)
		auth.POST("/forgot-password", s.forgotPassword)
		auth.POST("/reset-password/:token", s.resetPassword)

		protected := auth.Group("", s.requireAuth())
		protected.POST("/logout", s.logout)
		protected.GET("/me", s.me)
		protected.PUT("/profile", s.updateProfile)
		protected.PUT("/password", s.changePassword)
	}

	users := api.Group("/users", s.requireAuth(), requireRole(models.RoleAdmin))
	{
		users.GET("", s.listUsers)
		users.GET("/stats", s.userStats)
		users.POST("", s.createUser)
		users.GET("/:id", s.getUser)
		users.PUT("/:id", s.updateUser)
		users.DELETE("/:id", s.deleteUser)
		users.PUT("/:id/avatar", s.updateAvatar)
		users.PUT("/:id/password", s.setUserPassword)
		users.GET("/:id/activity", s.userActivity)
		users.PUT("/:id/preferences", s.updatePreferences)
	}

	documents := api.Group("/documents", s.requireAuth())
	{
		documents.GET("", s.listDocuments)
		documents.POST("", s.uploadDocument)
		documents.GET("/:id", s.getDocument)
		documents.DELETE("/:id", s.deleteDocument)
		documents.PUT("/:id/star", s.starDocument)
		documents.GET("/:id/download", s.downloadDocument)
	}

	analytics := api.Group("/analytics", s.requireAuth())
	{
		analytics.GET("/dashboard", s.dashboardAnalytics)
		analytics.GET("/detailed", s.detailedAnalytics)
		analytics.GET("/users", requireRole(models.RoleAdmin), s.userAnalytics)
		analytics.GET("/health", s.systemHealth)
		analytics.GET("/activity", requireRole(models.RoleAdmin, models.RoleStaff), s.activityLog)
	}

	return router
}

// validationError converts validator failures into a field-aware 400.
func validationError(err error, message string) *appErrors.Error {
	out := appErrors.Clone(appErrors.ErrValidation, message)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out.Fields = append(out.Fields, appErrors.FieldError{
				Field:   strings.ToLower(fe.Field()),
				Message: "failed on " + fe.Tag(),
			})
		}
	}
	return out
}
