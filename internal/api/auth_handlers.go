package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"profilehub/internal/audit"
	"profilehub/internal/auth"
	"profilehub/internal/infrastructure/media"
)

// sessionCookieName is the refresh token cookie. The name is part of the
// client contract.
const sessionCookieName = "jwt"

// loginRequest is the request body for POST /users/auth.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the body returned by login and refresh.
type sessionResponse struct {
	Roles       []auth.RoleLevel `json:"roles"`
	AccessToken string           `json:"access_token"`
}

// setSessionCookie sets the refresh token cookie. HttpOnly keeps it away
// from scripts; SameSite=None + Secure lets browser clients on another
// origin send it to the session endpoints.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearSessionCookie expires the refresh token cookie. Attributes must
// match setSessionCookie exactly or browsers will not clear it.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// handleRegister creates a new account from a multipart form: profile
// fields plus a required photo, which is uploaded to the media host
// before the record is written.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) { //nolint:gocognit // registration: validation + photo upload + create pipeline
	if err := r.ParseMultipartForm(maxRequestBodySize); err != nil {
		writeBadRequest(w, "invalid multipart form")
		return
	}

	email := auth.NormalizeEmail(r.FormValue("email"))
	fullName := strings.TrimSpace(r.FormValue("full_name"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	bio := strings.TrimSpace(r.FormValue("bio"))
	password := r.FormValue("password")

	// Whitespace-only values count as missing.
	if email == "" || fullName == "" || phone == "" || strings.TrimSpace(password) == "" {
		writeBadRequest(w, "email, full_name, phone, and password are required")
		return
	}
	if !auth.IsValidEmail(email) {
		writeBadRequest(w, "invalid email address")
		return
	}

	photo, photoHeader, err := r.FormFile("photo")
	if err != nil {
		writeBadRequest(w, "photo is required")
		return
	}
	defer photo.Close()

	if s.media == nil {
		s.logger.Error("register rejected: no media store configured")
		writeInternalError(w, "photo upload unavailable")
		return
	}

	contentType := photoHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	photoURL, err := s.media.Upload(r.Context(), media.ObjectKey(photoHeader.Filename), contentType, photo)
	if err != nil {
		s.logger.Error("photo upload failed", "error", err)
		writeInternalError(w, "failed to upload photo")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Email:        email,
		FullName:     fullName,
		Bio:          bio,
		Phone:        phone,
		PhotoURL:     photoURL,
		PasswordHash: hash,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.auditLog(audit.ActionRegister, audit.EntityUser, user.ID, user.ID, nil)

	writeJSON(w, http.StatusCreated, user)
}

// handleLogin authenticates credentials, starts a session, and sets the
// refresh cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	result, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// Same response for unknown email and wrong password.
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.auditLog(audit.ActionLogin, audit.EntitySession, result.User.ID, result.User.ID, nil)

	s.setSessionCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{
		Roles:       result.Roles,
		AccessToken: result.AccessToken,
	})
}

// handleRefresh exchanges the session cookie for a new access token. No
// cookie is 401; a cookie that fails any verification step is 403 and
// the cookie is cleared.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeUnauthorized(w, "no session cookie")
		return
	}

	result, err := s.sessions.Refresh(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoSession),
			errors.Is(err, auth.ErrTokenExpired),
			errors.Is(err, auth.ErrTokenInvalid):
			s.auditLog(audit.ActionRefreshDenied, audit.EntitySession, "", "", map[string]any{
				"reason": err.Error(),
			})
			s.clearSessionCookie(w)
			writeForbidden(w, "invalid session")
			return
		}
		s.logger.Error("refresh failed", "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Roles:       result.Roles,
		AccessToken: result.AccessToken,
	})
}

// handleLogout ends the session named by the cookie. Always 204: no
// cookie is a no-op, an unknown token just clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	found, err := s.sessions.Logout(r.Context(), cookie.Value)
	if err != nil {
		s.logger.Error("logout failed", "error", err)
		writeInternalError(w, "logout failed")
		return
	}
	if found {
		s.auditLog(audit.ActionLogout, audit.EntitySession, "", "", nil)
	}

	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
