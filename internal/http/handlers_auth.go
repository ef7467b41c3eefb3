package http

import (
	"net/http"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type sessionResponse struct {
	Message string   `json:"message"`
	User    userJSON `json:"user"`
	Token   string   `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" || sanitizeInput(req.Name) == "" {
		BadRequestError("Email, password and name are required").Write(w)
		return
	}

	user, token, err := s.svc.Accounts.Signup(r.Context(), req.Email, req.Password, sanitizeInput(req.Name))
	if err != nil {
		s.writeServiceError(w, r, err, "User not found")
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(sessionResponse{Message: "User created successfully", User: toUser(user, false), Token: token}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		BadRequestError("Email and password are required").Write(w)
		return
	}

	user, token, err := s.svc.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err, "User not found")
		return
	}

	NewJSONResponse().
		Body(sessionResponse{Message: "Login successful", User: toUser(user, false), Token: token}).
		Write(w)
}
