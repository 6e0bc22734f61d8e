package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/types"
	"go.uber.org/zap"
)

const (
	defaultPageLimit    = 20
	defaultMessageLimit = 200
)

// respondError maps the error taxonomy to HTTP statuses. Anything outside
// the taxonomy is an internal error and its detail stays in the logs.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Not Found"})
	case errors.Is(err, types.ErrForbidden):
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, types.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Unauthorized"})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Internal Server Error"})
	}
}

func limitOrDefault(limit, fallback int) int64 {
	if limit <= 0 {
		return int64(fallback)
	}
	return int64(limit)
}
