package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/middleware"
)

type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

// Get handles GET /me and returns the authenticated user's own record.
func (h *MeHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}
