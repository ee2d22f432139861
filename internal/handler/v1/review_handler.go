package v1

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/echovisit/echovisit-web/internal/domain/summary"
	"github.com/echovisit/echovisit-web/internal/service"
)

type ReviewHandler struct {
	review *service.ReviewService
}

func NewReviewHandler(review *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{review: review}
}

func (h *ReviewHandler) Load(c *gin.Context) {
	claims := currentClaims(c)
	view, err := h.review.Load(c.Request.Context(), claims.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

type lockRequest struct {
	Field  summary.Field `json:"field"`
	Locked bool          `json:"locked"`
}

func (h *ReviewHandler) SetLock(c *gin.Context) {
	var req lockRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	if err := h.review.SetLock(claims.SessionID, req.Field, req.Locked); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"field": req.Field, "locked": req.Locked})
}

type editFieldRequest struct {
	Field summary.Field `json:"field"`
	Text  string        `json:"text"`
}

func (h *ReviewHandler) EditField(c *gin.Context) {
	var req editFieldRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	if err := h.review.EditField(claims.SessionID, req.Field, req.Text); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"field": req.Field})
}

type submitReviewRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (h *ReviewHandler) Submit(c *gin.Context) {
	var req submitReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	final, err := h.review.Submit(c.Request.Context(), claims.SessionID, claims, req.Confirmed)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"submitted": true, "result": json.RawMessage(final)})
}
