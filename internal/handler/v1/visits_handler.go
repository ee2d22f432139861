package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/echovisit/echovisit-web/internal/domain/visit"
	"github.com/echovisit/echovisit-web/internal/service"
)

type VisitsHandler struct {
	visits *service.VisitsService
}

func NewVisitsHandler(visits *service.VisitsService) *VisitsHandler {
	return &VisitsHandler{visits: visits}
}

// List serves the visit history with the list page's filters applied:
// ?q= free-text search, ?range= day count or "all".
func (h *VisitsHandler) List(c *gin.Context) {
	claims := currentClaims(c)
	filter := visit.Filter{
		Term:  c.Query("q"),
		Range: c.DefaultQuery("range", visit.RangeAll),
	}
	view, err := h.visits.List(c.Request.Context(), claims.SessionID, claims, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}
