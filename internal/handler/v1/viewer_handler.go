package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/echovisit/echovisit-web/internal/service"
)

type ViewerHandler struct {
	viewer *service.ViewerService
}

func NewViewerHandler(viewer *service.ViewerService) *ViewerHandler {
	return &ViewerHandler{viewer: viewer}
}

type openViewerRequest struct {
	VisitID string `json:"visit_id"`
	Demo    bool   `json:"demo"`
}

// Open loads a visit for viewing: a persisted one by ID, the session's
// recorded result, or the demo payload.
func (h *ViewerHandler) Open(c *gin.Context) {
	var req openViewerRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	if err := h.viewer.Open(c.Request.Context(), claims.SessionID, claims, req.VisitID, req.Demo); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"opened": true})
}

// View renders the visit for ?lang= and ?mode=, with follow-up questions
// included unless ?followups=0.
func (h *ViewerHandler) View(c *gin.Context) {
	claims := currentClaims(c)
	lang := c.DefaultQuery("lang", "en")
	mode := c.DefaultQuery("mode", service.ModeOriginal)

	if c.Query("followups") == "0" {
		view, err := h.viewer.View(c.Request.Context(), claims.SessionID, lang, mode)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, view)
		return
	}

	view, err := h.viewer.ViewWithFollowUps(c.Request.Context(), claims.SessionID, lang, mode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

func (h *ViewerHandler) FollowUps(c *gin.Context) {
	claims := currentClaims(c)
	questions, err := h.viewer.FollowUps(c.Request.Context(), claims.SessionID, c.DefaultQuery("lang", "en"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"questions": questions})
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *ViewerHandler) Ask(c *gin.Context) {
	var req askRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	answer, err := h.viewer.Ask(c.Request.Context(), claims.SessionID, req.Question)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, answer)
}
