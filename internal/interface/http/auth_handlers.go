package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/learnflow/learnflow-backend/internal/application/command"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	GradeLevel  string `json:"grade_level,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

type studentResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	GradeLevel  string    `json:"grade_level,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toStudentResponse(s *student.Student) studentResponse {
	return studentResponse{
		ID:          s.ID,
		Email:       s.Email.String(),
		DisplayName: s.DisplayName,
		GradeLevel:  string(s.GradeLevel),
		Bio:         s.Bio,
		CreatedAt:   s.CreatedAt,
	}
}

// handleRegister handles POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RegisterStudent.Handle(r.Context(), command.RegisterStudentCommand{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		GradeLevel:  req.GradeLevel,
		Bio:         req.Bio,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentResponse(result.Student))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Student   studentResponse `json:"student"`
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Login.Handle(r.Context(), command.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Session.Token.String(),
		ExpiresAt: result.Session.ExpiresAt,
		Student:   toStudentResponse(result.Student),
	})
}

// handleLogout handles POST /api/v1/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Logout.Handle(r.Context(), command.LogoutCommand{
		Token: sessionTokenFrom(r),
	}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleMe handles GET /api/v1/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	stud := studentFrom(r)
	if stud == nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Session token is invalid")
		return
	}
	writeJSON(w, http.StatusOK, toStudentResponse(stud))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// handleChangePassword handles POST /api/v1/auth/password
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.ChangePassword.Handle(r.Context(), command.ChangePasswordCommand{
		StudentID:   studentFrom(r).ID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

type deactivateRequest struct {
	Reason string `json:"reason,omitempty"`
}

// handleDeactivate handles DELETE /api/v1/auth/me
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	// The body is optional for this endpoint.
	_ = json.NewDecoder(r.Body).Decode(&req)

	stud := studentFrom(r)
	if err := s.deps.DeactivateStudent.Handle(r.Context(), command.DeactivateStudentCommand{
		StudentID: stud.ID,
		Reason:    req.Reason,
	}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Dead sessions should not outlive the account.
	_ = s.deps.Logout.Handle(r.Context(), command.LogoutCommand{Token: sessionTokenFrom(r)})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ─────────────────────────────────────────────────────────────────────────────
// Request helpers
// ─────────────────────────────────────────────────────────────────────────────

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
		return false
	}
	return true
}

// studentFrom returns the authenticated student injected by requireSession.
func studentFrom(r *http.Request) *student.Student {
	if s, ok := r.Context().Value(contextKeyStudent).(*student.Student); ok {
		return s
	}
	return nil
}

// sessionTokenFrom returns the validated session token for the request.
func sessionTokenFrom(r *http.Request) string {
	if t, ok := r.Context().Value(contextKeyToken).(string); ok {
		return t
	}
	return ""
}
