package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"profilehub/internal/audit"
	"profilehub/internal/auth"
)

// updateProfileRequest is the partial-update body for PATCH /profiles/{id}.
// Nil fields are left unchanged.
type updateProfileRequest struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
	Password *string `json:"password,omitempty"`
}

// visibilityRequest is the body for PATCH /profiles/{id}/visibility.
// Omitting is_public flips the current value.
type visibilityRequest struct {
	IsPublic *bool `json:"is_public,omitempty"`
}

// handleListPublicProfiles returns profiles that opted into the directory.
func (s *Server) handleListPublicProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeProfileList(r.Context(), w, s.users.ListPublic)
}

// handleListAdminProfiles returns profiles holding the admin role.
func (s *Server) handleListAdminProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeProfileList(r.Context(), w, s.users.ListAdmins)
}

// handleListMemberProfiles returns profiles without the admin role.
func (s *Server) handleListMemberProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeProfileList(r.Context(), w, s.users.ListMembers)
}

// handleListAllProfiles returns every account. Admin only.
func (s *Server) handleListAllProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeProfileList(r.Context(), w, s.users.List)
}

// writeProfileList runs a listing query and writes the standard response.
func (s *Server) writeProfileList(ctx context.Context, w http.ResponseWriter, list func(context.Context) ([]auth.User, error)) {
	profiles, err := list(ctx)
	if err != nil {
		s.logger.Error("list profiles failed", "error", err)
		writeInternalError(w, "failed to list profiles")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// handleGetProfile returns a single profile by ID.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// 400, not 404: unknown IDs are treated as bad requests.
			writeBadRequest(w, "profile not found")
			return
		}
		s.logger.Error("get profile failed", "error", err)
		writeInternalError(w, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateProfile applies a partial update to a profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) { //nolint:gocognit,gocyclo // field patching + validation per field
	id := chi.URLParam(r, "id")

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeBadRequest(w, "profile not found")
			return
		}
		s.logger.Error("get profile failed", "error", err)
		writeInternalError(w, "failed to update profile")
		return
	}

	changed := map[string]any{}

	if req.Email != nil {
		email := auth.NormalizeEmail(*req.Email)
		if !auth.IsValidEmail(email) {
			writeBadRequest(w, "invalid email address")
			return
		}
		user.Email = email
		changed["email"] = email
	}
	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			writeBadRequest(w, "full_name cannot be empty")
			return
		}
		user.FullName = strings.TrimSpace(*req.FullName)
		changed["full_name"] = user.FullName
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
		changed["bio"] = user.Bio
	}
	if req.Phone != nil {
		if strings.TrimSpace(*req.Phone) == "" {
			writeBadRequest(w, "phone cannot be empty")
			return
		}
		user.Phone = strings.TrimSpace(*req.Phone)
		changed["phone"] = user.Phone
	}
	if req.PhotoURL != nil {
		user.PhotoURL = strings.TrimSpace(*req.PhotoURL)
		changed["photo_url"] = user.PhotoURL
	}
	if req.Password != nil {
		if strings.TrimSpace(*req.Password) == "" {
			writeBadRequest(w, "password cannot be empty")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.logger.Error("hash password failed", "error", err)
			writeInternalError(w, "failed to update profile")
			return
		}
		user.PasswordHash = hash
		changed["password"] = "rotated"
	}

	if len(changed) == 0 {
		writeBadRequest(w, "no fields to update")
		return
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("update profile failed", "error", err)
		writeInternalError(w, "failed to update profile")
		return
	}

	s.auditLog(audit.ActionProfileUpdate, audit.EntityUser, user.ID, actorID(r), changed)

	writeJSON(w, http.StatusOK, user)
}

// handleToggleVisibility flips or sets a profile's public flag.
func (s *Server) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req visibilityRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeBadRequest(w, "profile not found")
			return
		}
		s.logger.Error("get profile failed", "error", err)
		writeInternalError(w, "failed to update visibility")
		return
	}

	public := !user.IsPublic
	if req.IsPublic != nil {
		public = *req.IsPublic
	}

	if err := s.users.SetVisibility(r.Context(), user.ID, public); err != nil {
		s.logger.Error("set visibility failed", "error", err)
		writeInternalError(w, "failed to update visibility")
		return
	}
	user.IsPublic = public

	s.auditLog(audit.ActionVisibilityToggle, audit.EntityUser, user.ID, actorID(r), map[string]any{
		"is_public": public,
	})

	writeJSON(w, http.StatusOK, user)
}

// handleGrantAdmin adds the admin role to a profile. Any authenticated
// user can grant: this is the bootstrap path for promoting the first
// admins, and granting twice is harmless.
func (s *Server) handleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.users.GrantAdmin(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeBadRequest(w, "profile not found")
			return
		}
		s.logger.Error("grant admin failed", "error", err)
		writeInternalError(w, "failed to grant admin role")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("get profile failed", "error", err)
		writeInternalError(w, "failed to grant admin role")
		return
	}

	s.auditLog(audit.ActionAdminGrant, audit.EntityUser, user.ID, actorID(r), nil)

	writeJSON(w, http.StatusOK, user)
}

// actorID returns the authenticated caller's email for audit entries.
func actorID(r *http.Request) string {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.Email
	}
	return ""
}
