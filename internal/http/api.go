package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/service"
)

// IdentityResolver turns a bearer access token into the acting user.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, accessToken string) (*domain.User, error)
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	tasks    service.TaskService
	exports  service.ExportService
	identity IdentityResolver
	logger   logrus.FieldLogger
}

func NewHandler(users service.UserService, tasks service.TaskService, exports service.ExportService, identity IdentityResolver, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:    users,
		tasks:    tasks,
		exports:  exports,
		identity: identity,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	router.POST("/register", h.register)
	router.POST("/login/", h.login)
	router.POST("/refresh", h.refresh)

	tasks := router.Group("/tasks", h.requireAuth())
	{
		tasks.POST("", h.createTask)
		tasks.GET("", h.listTasks)
		tasks.GET("/search", h.searchTasks)
		tasks.POST("/export", h.exportTasks)
		tasks.GET("/exports", h.listExports)
		tasks.DELETE("/exports", h.deleteExports)
		tasks.GET("/:task_id", h.getTask)
		tasks.PUT("/:task_id", h.updateTask)
		tasks.DELETE("/:task_id", h.deleteTask)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "WWW-Authenticate")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	abortWithDetail(c, http.StatusUnauthorized, detail)
}

// respondError maps service errors onto status codes. Anything unknown is
// logged and reported as a bare 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrUserAlreadyExists):
		abortWithDetail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidRefreshToken):
		abortUnauthorized(c, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		abortWithDetail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExportDisabled):
		abortWithDetail(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(499)
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		abortWithDetail(c, http.StatusInternalServerError, "internal server error")
	}
}
