package http

import (
	"net/http"

	"spendwise/internal/auth"
)

type renameRequest struct {
	Name string `json:"name"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type passwordConfirmRequest struct {
	Password string `json:"password"`
}

// principal returns the caller attached by the auth middleware.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Accounts.Profile(r.Context(), principal(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(map[string]any{"user": toUser(user, true)}).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	user, err := s.svc.Accounts.Rename(r.Context(), principal(r).UserID, sanitizeInput(req.Name))
	if err != nil {
		s.writeServiceError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(map[string]any{
		"message": "Profile updated successfully",
		"user":    toUser(user, true),
	}).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		BadRequestError("Current and new password are required").Write(w)
		return
	}

	if err := s.svc.Accounts.ChangePassword(r.Context(), principal(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeServiceError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Message("Password updated successfully").Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req passwordConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if req.Password == "" {
		BadRequestError("Password is required").Write(w)
		return
	}

	if err := s.svc.Accounts.DeleteAccount(r.Context(), principal(r).UserID, req.Password); err != nil {
		s.writeServiceError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Message("Account deleted successfully").Write(w)
}
