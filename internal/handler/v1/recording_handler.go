package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echovisit/echovisit-web/internal/service"
)

type RecordingHandler struct {
	recording      *service.RecordingService
	maxUploadBytes int64
}

func NewRecordingHandler(recording *service.RecordingService, maxUploadBytes int64) *RecordingHandler {
	return &RecordingHandler{recording: recording, maxUploadBytes: maxUploadBytes}
}

func (h *RecordingHandler) Begin(c *gin.Context) {
	claims := currentClaims(c)
	if err := h.recording.Begin(c.Request.Context(), claims.SessionID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"state": service.RecordingActive})
}

// Complete accepts the finished clip as a multipart upload under the
// "audio" field.
func (h *RecordingHandler) Complete(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		respondServiceError(c, &service.ValidationError{Fields: []string{"audio file is required"}})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/webm"
	}

	claims := currentClaims(c)
	res, err := h.recording.Complete(c.Request.Context(), claims.SessionID, claims, header.Filename, contentType, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *RecordingHandler) State(c *gin.Context) {
	claims := currentClaims(c)
	respondOK(c, gin.H{"state": h.recording.State(claims.SessionID)})
}
