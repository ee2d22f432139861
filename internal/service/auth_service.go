package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/auth"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

// AuthService fronts the upstream auth endpoints. Credentials never touch
// this service's storage; a successful upstream login opens a local session
// that carries the caller's identity for the rest of the visit flow.
type AuthService struct {
	client     *upstream.Client
	sessions   session.Store
	tokens     *auth.TokenManager
	audit      *AuditService
	metrics    *metrics.Collector
	sessionTTL time.Duration
	log        *zap.Logger
}

func NewAuthService(
	client *upstream.Client,
	sessions session.Store,
	tokens *auth.TokenManager,
	audit *AuditService,
	m *metrics.Collector,
	sessionTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		client:     client,
		sessions:   sessions,
		tokens:     tokens,
		audit:      audit,
		metrics:    m,
		sessionTTL: sessionTTL,
		log:        log,
	}
}

type LoginResult struct {
	Tokens *domain.TokenPair `json:"tokens"`
	Role   domain.Role       `json:"role"`
	UserID string            `json:"user_id"`
	Name   string            `json:"name"`
}

func (s *AuthService) SignupDoctor(ctx context.Context, name, email, password, clinic string) error {
	var missing []string
	if strings.TrimSpace(name) == "" {
		missing = append(missing, "name is required")
	}
	if strings.TrimSpace(email) == "" {
		missing = append(missing, "email is required")
	}
	if password == "" {
		missing = append(missing, "password is required")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	res, err := s.client.SignupDoctor(ctx, &upstream.SignupDoctorRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Clinic:   clinic,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		// The service answers 200 with an error message when it refuses
		// a signup (duplicate email and the like).
		msg := res.Message()
		if msg == "" {
			msg = "signup failed"
		}
		return &ValidationError{Fields: []string{msg}}
	}

	s.audit.LogAsync(AuditEntry{
		Action:       string(domain.ActionSignup),
		UserRole:     string(domain.RoleDoctor),
		ResourceType: "doctor",
	})
	return nil
}

func (s *AuthService) LoginDoctor(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &ValidationError{Fields: []string{"email and password are required"}}
	}

	res, err := s.client.LoginDoctor(ctx, &upstream.LoginDoctorRequest{Email: email, Password: password})
	if err != nil {
		return nil, s.mapAuthError(err, email, ip)
	}
	if !res.Success {
		return nil, s.rejectLogin(res, email, ip)
	}

	return s.openSession(ctx, domain.RoleDoctor, res, map[string]string{
		session.KeyDoctorID:   res.ID(),
		session.KeyDoctorName: res.Name,
	}, ip)
}

func (s *AuthService) LoginPatient(ctx context.Context, email, birthday, ip string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(birthday) == "" {
		return nil, &ValidationError{Fields: []string{"email and birthday are required"}}
	}

	res, err := s.client.LoginPatient(ctx, &upstream.LoginPatientRequest{Email: email, Birthday: birthday})
	if err != nil {
		return nil, s.mapAuthError(err, email, ip)
	}
	if !res.Success {
		return nil, s.rejectLogin(res, email, ip)
	}

	return s.openSession(ctx, domain.RolePatient, res, map[string]string{
		session.KeyPatientID:       res.ID(),
		session.KeyPatientName:     res.Name,
		session.KeyPatientEmail:    email,
		session.KeyPatientBirthday: birthday,
	}, ip)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	// The session must still be live for a refresh to make sense.
	if _, err := s.sessions.Get(ctx, claims.SessionID); err != nil {
		return nil, ErrLoginRequired
	}
	return s.tokens.GenerateTokenPair(claims)
}

func (s *AuthService) Logout(ctx context.Context, claims *domain.Claims) error {
	if err := s.sessions.Destroy(ctx, claims.SessionID); err != nil {
		return err
	}
	s.metrics.SessionsActive.Dec()
	return nil
}

func (s *AuthService) openSession(ctx context.Context, role domain.Role, res *upstream.AuthResponse, values map[string]string, ip string) (*LoginResult, error) {
	rec, err := s.sessions.Create(ctx, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.PutAll(ctx, rec.ID, values); err != nil {
		return nil, err
	}

	claims := &domain.Claims{
		SessionID: rec.ID,
		Role:      role,
		UserID:    res.ID(),
		Name:      res.Name,
	}
	pair, err := s.tokens.GenerateTokenPair(claims)
	if err != nil {
		return nil, err
	}

	s.metrics.SessionsActive.Inc()
	s.audit.LogAsync(AuditEntry{
		SessionID:    rec.ID.String(),
		UserID:       res.ID(),
		UserRole:     string(role),
		Action:       string(domain.ActionLogin),
		ResourceType: "session",
		ResourceID:   rec.ID.String(),
		IPAddress:    ip,
	})
	s.log.Info("session opened",
		zap.String("session_id", rec.ID.String()),
		zap.String("role", string(role)))

	return &LoginResult{Tokens: pair, Role: role, UserID: res.ID(), Name: res.Name}, nil
}

// rejectLogin handles a 200 response whose body reported a failed login.
func (s *AuthService) rejectLogin(res *upstream.AuthResponse, email, ip string) error {
	s.log.Warn("failed login attempt",
		zap.String("email", email),
		zap.String("ip", ip),
		zap.String("reason", res.Message()))
	return ErrInvalidCredentials
}

func (s *AuthService) mapAuthError(err error, email, ip string) error {
	var ue *upstream.Error
	if errors.As(err, &ue) && (ue.StatusCode == http.StatusUnauthorized || ue.StatusCode == http.StatusNotFound || ue.StatusCode == http.StatusForbidden) {
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip))
		return ErrInvalidCredentials
	}
	return err
}
