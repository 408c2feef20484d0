package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// IssueService posts and reads issues.
type IssueService interface {
	Post(ctx context.Context, doc *issue.Issue) (*issue.Issue, error)
	GetByID(ctx context.Context, docID id.ID) (*issue.Issue, error)
}

// IssueHandler handles HTTP requests for issues.
type IssueHandler struct {
	*BaseHandler
	service IssueService
}

// NewIssueHandler creates a new issue handler.
func NewIssueHandler(base *BaseHandler, service IssueService) *IssueHandler {
	return &IssueHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the issue endpoints.
func (h *IssueHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Post)
	rg.GET("/:id", h.Get)
}

// Post handles POST /issues.
func (h *IssueHandler) Post(c *gin.Context) {
	var req dto.PostIssueRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := req.ToEntity(h.Now())
	if err != nil {
		h.Error(c, err)
		return
	}
	posted, err := h.service.Post(c.Request.Context(), doc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, posted)
}

// Get handles GET /issues/:id.
func (h *IssueHandler) Get(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
