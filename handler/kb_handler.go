package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/middleware"
	"github.com/tieubaoca/ragchat-be/service"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/validation"
)

type KnowledgeBaseHandler struct {
	kb *service.KnowledgeBaseService
}

func NewKnowledgeBaseHandler(kb *service.KnowledgeBaseService) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{
		kb: kb,
	}
}

// List handles GET /kb and only returns the caller's own bases. Public bases
// owned by others are reachable by id, never listed.
func (h *KnowledgeBaseHandler) List(c *gin.Context) {
	var query types.CursorListQuery
	if !validation.Bind(c, validation.Target{Query: &query}) {
		return
	}
	before, ok := validation.ParseCursor(c, query.Cursor)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	kbs, err := h.kb.ListKbs(c.Request.Context(), user.ID, before, limitOrDefault(query.Limit, defaultPageLimit))
	if err != nil {
		respondError(c, err)
		return
	}

	page := types.CursorPage{Items: kbs}
	if kbs == nil {
		page.Items = []types.KnowledgeBase{}
	}
	if len(kbs) > 0 {
		page.NextCursor = kbs[len(kbs)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, page)
}

func (h *KnowledgeBaseHandler) Create(c *gin.Context) {
	var req types.CreateKbRequest
	if !validation.Bind(c, validation.Target{Body: &req}) {
		return
	}
	user := middleware.CurrentUser(c)
	kb, err := h.kb.CreateKb(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, kb)
}

func (h *KnowledgeBaseHandler) Get(c *gin.Context) {
	var params types.IDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user := middleware.CurrentUser(c)
	kb, err := h.kb.GetKb(c.Request.Context(), params.ID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, kb)
}

func (h *KnowledgeBaseHandler) Update(c *gin.Context) {
	var params types.IDParam
	var req types.UpdateKbRequest
	if !validation.Bind(c, validation.Target{URI: &params, Body: &req}) {
		return
	}
	user := middleware.CurrentUser(c)
	kb, err := h.kb.UpdateKb(c.Request.Context(), params.ID, user.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, kb)
}

func (h *KnowledgeBaseHandler) Delete(c *gin.Context) {
	var params types.IDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.kb.DeleteKb(c.Request.Context(), params.ID, user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Search handles GET /kb/:id/search, a direct similarity query without the
// chat loop. Useful for debugging what retrieval would feed the model.
func (h *KnowledgeBaseHandler) Search(c *gin.Context) {
	var params types.IDParam
	var query types.KbSearchQuery
	if !validation.Bind(c, validation.Target{URI: &params, Query: &query}) {
		return
	}
	user := middleware.CurrentUser(c)
	hits, err := h.kb.Search(c.Request.Context(), params.ID, user.ID, query.Q, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if hits == nil {
		hits = []types.SearchHit{}
	}
	c.JSON(http.StatusOK, gin.H{"items": hits})
}
