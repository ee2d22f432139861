package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/echovisit/echovisit-web/internal/service"
)

type IntakeHandler struct {
	intake *service.IntakeService
}

func NewIntakeHandler(intake *service.IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: intake}
}

type patientLinkRequest struct {
	Email    string `json:"email"`
	Birthday string `json:"birthday"`
}

func (h *IntakeHandler) SavePatientLink(c *gin.Context) {
	var req patientLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	if err := h.intake.SavePatientLink(c.Request.Context(), claims.SessionID, req.Email, req.Birthday); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"saved": true})
}

func (h *IntakeHandler) UpdateVitals(c *gin.Context) {
	var req service.VitalsInput
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	view, err := h.intake.UpdateVitals(c.Request.Context(), claims.SessionID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

type addMedicationRequest struct {
	List      string `json:"list"`
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
}

func (h *IntakeHandler) AddMedication(c *gin.Context) {
	var req addMedicationRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	view, err := h.intake.AddMedication(c.Request.Context(), claims.SessionID, req.List, req.Name, req.Dose, req.Frequency)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

func (h *IntakeHandler) RemoveMedication(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondServiceError(c, &service.ValidationError{Fields: []string{"index must be a number"}})
		return
	}
	claims := currentClaims(c)
	view, err := h.intake.RemoveMedication(c.Request.Context(), claims.SessionID, c.Param("list"), index)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

func (h *IntakeHandler) Meds(c *gin.Context) {
	claims := currentClaims(c)
	view, err := h.intake.Meds(c.Request.Context(), claims.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

func (h *IntakeHandler) CheckInteractions(c *gin.Context) {
	claims := currentClaims(c)
	view, err := h.intake.CheckInteractions(c.Request.Context(), claims.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

func (h *IntakeHandler) Submit(c *gin.Context) {
	var req service.VitalsInput
	if !bindJSON(c, &req) {
		return
	}
	claims := currentClaims(c)
	view, err := h.intake.Submit(c.Request.Context(), claims.SessionID, claims, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}
