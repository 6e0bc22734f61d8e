package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/middleware"
	"github.com/tieubaoca/ragchat-be/service"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/validation"
)

type DocumentHandler struct {
	kb *service.KnowledgeBaseService
}

func NewDocumentHandler(kb *service.KnowledgeBaseService) *DocumentHandler {
	return &DocumentHandler{
		kb: kb,
	}
}

// Create handles POST /kb/:id/docs. The response reports how many documents
// were inserted; embedding runs inline and best-effort.
func (h *DocumentHandler) Create(c *gin.Context) {
	var params types.IDParam
	var req types.CreateDocumentsRequest
	if !validation.Bind(c, validation.Target{URI: &params, Body: &req}) {
		return
	}
	user := middleware.CurrentUser(c)
	inserted, err := h.kb.CreateDocuments(c.Request.Context(), params.ID, user.ID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.InsertedResponse{Inserted: inserted})
}

func (h *DocumentHandler) List(c *gin.Context) {
	var params types.IDParam
	var query types.OffsetListQuery
	if !validation.Bind(c, validation.Target{URI: &params, Query: &query}) {
		return
	}
	user := middleware.CurrentUser(c)
	docs, hasNextPage, err := h.kb.ListDocuments(c.Request.Context(), params.ID, user.ID,
		int64(query.Offset), limitOrDefault(query.Limit, defaultPageLimit))
	if err != nil {
		respondError(c, err)
		return
	}
	if docs == nil {
		docs = []types.Document{}
	}
	c.JSON(http.StatusOK, types.OffsetPage{Items: docs, HasNextPage: hasNextPage})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	var params types.DocIDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user := middleware.CurrentUser(c)
	doc, err := h.kb.GetDocument(c.Request.Context(), params.ID, params.DocID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GetByID handles GET /docs/:id, resolving a document through its parent
// knowledge base's visibility.
func (h *DocumentHandler) GetByID(c *gin.Context) {
	var params types.IDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user := middleware.CurrentUser(c)
	doc, err := h.kb.GetDocumentByID(c.Request.Context(), params.ID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var params types.DocIDParam
	var req types.UpdateDocumentRequest
	if !validation.Bind(c, validation.Target{URI: &params, Body: &req}) {
		return
	}
	user := middleware.CurrentUser(c)
	doc, err := h.kb.UpdateDocument(c.Request.Context(), params.ID, params.DocID, user.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	var params types.DocIDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.kb.DeleteDocument(c.Request.Context(), params.ID, params.DocID, user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
