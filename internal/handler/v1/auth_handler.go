package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echovisit/echovisit-web/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
	// Per-session in-memory state released on logout.
	cleanup []func(uuid.UUID)
}

func NewAuthHandler(auth *service.AuthService, cleanup ...func(uuid.UUID)) *AuthHandler {
	return &AuthHandler{auth: auth, cleanup: cleanup}
}

type signupDoctorRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Clinic   string `json:"clinic"`
}

func (h *AuthHandler) SignupDoctor(c *gin.Context) {
	var req signupDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.SignupDoctor(c.Request.Context(), req.Name, req.Email, req.Password, req.Clinic); err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, gin.H{"signed_up": true})
}

type loginDoctorRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) LoginDoctor(c *gin.Context) {
	var req loginDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auth.LoginDoctor(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

type loginPatientRequest struct {
	Email    string `json:"email"`
	Birthday string `json:"birthday"`
}

func (h *AuthHandler) LoginPatient(c *gin.Context) {
	var req loginPatientRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auth.LoginPatient(c.Request.Context(), req.Email, req.Birthday, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims := currentClaims(c)
	if claims == nil {
		respondServiceError(c, service.ErrLoginRequired)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		respondServiceError(c, err)
		return
	}
	for _, release := range h.cleanup {
		release(claims.SessionID)
	}
	respondOK(c, gin.H{"logged_out": true})
}
