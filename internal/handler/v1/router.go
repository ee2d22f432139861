package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/config"
	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/service"
	"github.com/echovisit/echovisit-web/pkg/auth"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

type Services struct {
	Auth      *service.AuthService
	Intake    *service.IntakeService
	Recording *service.RecordingService
	Review    *service.ReviewService
	Visits    *service.VisitsService
	Viewer    *service.ViewerService
}

// NewRouter wires the full API surface. Doctor-side routes (intake,
// recording, review) require a doctor session; patient-side routes
// (visit list) a patient one. The viewer serves both roles.
func NewRouter(cfg *config.Config, svcs Services, tokens *auth.TokenManager, m *metrics.Collector, log *zap.Logger) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(Metrics(m))
	r.Use(CORS(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	authHandler := NewAuthHandler(svcs.Auth,
		svcs.Intake.Release, svcs.Recording.Release, svcs.Review.Release, svcs.Viewer.Close)
	intakeHandler := NewIntakeHandler(svcs.Intake)
	recordingHandler := NewRecordingHandler(svcs.Recording, cfg.Server.MaxUploadBytes)
	reviewHandler := NewReviewHandler(svcs.Review)
	visitsHandler := NewVisitsHandler(svcs.Visits)
	viewerHandler := NewViewerHandler(svcs.Viewer)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup/doctor", authHandler.SignupDoctor)
		authGroup.POST("/login/doctor", authHandler.LoginDoctor)
		authGroup.POST("/login/patient", authHandler.LoginPatient)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", RequireAuth(tokens), authHandler.Logout)
	}

	doctor := api.Group("", RequireAuth(tokens), RequireRole(domain.RoleDoctor))
	{
		intake := doctor.Group("/intake")
		intake.PUT("/patient-link", intakeHandler.SavePatientLink)
		intake.PUT("/vitals", intakeHandler.UpdateVitals)
		intake.GET("/meds", intakeHandler.Meds)
		intake.POST("/meds", intakeHandler.AddMedication)
		intake.DELETE("/meds/:list/:index", intakeHandler.RemoveMedication)
		intake.POST("/meds/check", intakeHandler.CheckInteractions)
		intake.POST("/submit", intakeHandler.Submit)

		recording := doctor.Group("/recording")
		recording.POST("/begin", recordingHandler.Begin)
		recording.POST("/complete", recordingHandler.Complete)
		recording.GET("/state", recordingHandler.State)

		review := doctor.Group("/review")
		review.GET("", reviewHandler.Load)
		review.PUT("/lock", reviewHandler.SetLock)
		review.PUT("/field", reviewHandler.EditField)
		review.POST("/submit", reviewHandler.Submit)
	}

	patient := api.Group("", RequireAuth(tokens), RequireRole(domain.RolePatient))
	{
		patient.GET("/visits", visitsHandler.List)
	}

	viewer := api.Group("/viewer", RequireAuth(tokens))
	{
		viewer.POST("/open", viewerHandler.Open)
		viewer.GET("/view", viewerHandler.View)
		viewer.GET("/follow-ups", viewerHandler.FollowUps)
		viewer.POST("/qa", viewerHandler.Ask)
	}

	return r
}
