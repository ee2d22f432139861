package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error carries a non-2xx upstream response. The body is kept verbatim so
// callers can surface the service's own message.
type Error struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		return fmt.Sprintf("upstream: %s returned status %d", e.Path, e.StatusCode)
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Sprintf("upstream: %s returned status %d: %s", e.Path, e.StatusCode, msg)
}

// AuthResponse covers the signup and login endpoints, which all answer
// {success, <id field>, name, error?}. Which identifier field is populated
// depends on the endpoint: doctor_id, patient_id, or (for signup) user_id.
type AuthResponse struct {
	Success   bool   `json:"success"`
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Error     string `json:"error"`
	Detail    string `json:"detail"`
}

// ID returns whichever identifier the endpoint answered with.
func (r *AuthResponse) ID() string {
	switch {
	case r.DoctorID != "":
		return r.DoctorID
	case r.PatientID != "":
		return r.PatientID
	}
	return r.UserID
}

// Message returns the service's error text, whichever field carried it.
func (r *AuthResponse) Message() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Detail
}

type Doctor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Clinic string `json:"clinic"`
}

type DoctorsResponse struct {
	Doctors []Doctor `json:"doctors"`
}

type SignupDoctorRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Clinic   string `json:"clinic"`
}

type LoginDoctorRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginPatientRequest struct {
	Email    string `json:"email"`
	Birthday string `json:"birthday"`
}

type InteractionRequest struct {
	CurrentMeds []string `json:"current_meds"`
	NewMeds     []string `json:"new_meds"`
}

// PairList tolerates both encodings the checker emits for a pair: a two
// element array and a single "A + B" string.
type PairList []string

func (p *PairList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*p = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parts := strings.Split(s, "+")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	*p = out
	return nil
}

type Interaction struct {
	Pair        PairList `json:"pair"`
	Severity    string   `json:"severity"`
	Note        string   `json:"note"`
	Description string   `json:"description"`
}

// Detail returns the explanation text, preferring note over description.
func (i *Interaction) Detail() string {
	if i.Note != "" {
		return i.Note
	}
	return i.Description
}

type InteractionResponse struct {
	HasIssue     bool          `json:"has_issue"`
	Interactions []Interaction `json:"interactions"`
}

// TranslateRequest carries the source payload flattened alongside the
// target language; mode records whether the source had already been
// simplified.
type TranslateRequest struct {
	Lang       string `json:"lang"`
	Mode       string `json:"mode"`
	Transcript any    `json:"transcript"`
	Summary    any    `json:"summary"`
}

type FollowUpRequest struct {
	Summary any `json:"summary"`
}

type FollowUpResponse struct {
	Questions []string `json:"questions"`
}

type TranslateFollowUpRequest struct {
	Questions []string `json:"questions"`
	Lang      string   `json:"lang"`
}

type QAContext struct {
	Transcript string `json:"transcript"`
	Summary    any    `json:"summary"`
}

type QARequest struct {
	Question string    `json:"question"`
	Context  QAContext `json:"context"`
}

type QAResponse struct {
	Answer    string   `json:"answer"`
	FollowUps []string `json:"followups"`
}

type Visit struct {
	ID        string `json:"id"`
	Name      string `json:"name of visit"`
	Clinic    string `json:"clinic"`
	DoctorID  string `json:"doctor_id"`
	VisitDate string `json:"visit_date"`
}

type VisitsResponse struct {
	Visits []Visit `json:"visits"`
}
