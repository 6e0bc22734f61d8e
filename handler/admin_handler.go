package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/middleware"
	"github.com/tieubaoca/ragchat-be/service"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/validation"
)

// AdminHandler serves the operator surface: user management and the audit
// trail. Routes are mounted behind both auth and the admin gate.
type AdminHandler struct {
	users *service.UserService
	audit *service.AuditService
}

func NewAdminHandler(users *service.UserService, audit *service.AuditService) *AdminHandler {
	return &AdminHandler{
		users: users,
		audit: audit,
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var query types.OffsetListQuery
	if !validation.Bind(c, validation.Target{Query: &query}) {
		return
	}
	users, hasNextPage, err := h.users.PaginateUsers(c.Request.Context(),
		int64(query.Offset), limitOrDefault(query.Limit, defaultPageLimit))
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []*types.User{}
	}
	c.JSON(http.StatusOK, types.OffsetPage{Items: users, HasNextPage: hasNextPage})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	var params types.IDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), params.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) PatchUserRole(c *gin.Context) {
	var params types.IDParam
	var req types.PatchUserRoleRequest
	if !validation.Bind(c, validation.Target{URI: &params, Body: &req}) {
		return
	}
	actor := middleware.CurrentUser(c)
	user, err := h.users.UpdateRole(c.Request.Context(), actor, params.ID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	var query types.OffsetListQuery
	if !validation.Bind(c, validation.Target{Query: &query}) {
		return
	}
	entries, hasNextPage, err := h.audit.List(c.Request.Context(),
		int64(query.Offset), limitOrDefault(query.Limit, defaultPageLimit))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []types.AuditLogEntry{}
	}
	c.JSON(http.StatusOK, types.OffsetPage{Items: entries, HasNextPage: hasNextPage})
}
