package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pharmaplaza/server/internal/auth"
	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/internal/storage"
	"github.com/pharmaplaza/server/pkg/responders"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// issueToken signs whatever identity claims the client posts.
func (h *handlers) issueToken(w http.ResponseWriter, r *http.Request) {
	var identity map[string]any
	if err := decodeJSON(r, &identity); err != nil {
		writeBodyError(w, r, "auth.jwt.invalid_body", err)
		return
	}
	if identity == nil {
		identity = map[string]any{}
	}

	token, err := h.issuer.Issue(identity)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("auth.jwt.sign_failed")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInternalError, "failed to issue token")
		return
	}
	responders.JSON(w, http.StatusOK, tokenResponse{Token: token})
}

type userExistsResponse struct {
	Message    string `json:"message"`
	InsertedID any    `json:"insertedId"`
}

// createUser registers a user on first sign-in and is a no-op for known emails.
func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var u storage.User
	if err := decodeJSON(r, &u); err != nil {
		writeBodyError(w, r, "users.create.invalid_body", err)
		return
	}
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "email is required")
		return
	}
	if u.Role != "" {
		role, err := auth.ParseRole(u.Role)
		if err != nil {
			apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidRole, err.Error())
			return
		}
		u.Role = role.String()
	}

	res, created, err := h.store.CreateUser(r.Context(), u)
	if err != nil {
		writeStoreError(w, r, "users.create.insert_failed", err)
		return
	}
	if !created {
		responders.JSON(w, http.StatusOK, userExistsResponse{Message: "user already exists"})
		return
	}
	log.Info().Str("email", logger.RedactEmail(u.Email)).Msg("users.created")
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, r, "users.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, users)
}

// getUser answers null rather than 404 for unknown emails.
func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUserByEmail(r.Context(), pathParam(r, "email"))
	if errors.Is(err, storage.ErrNotFound) {
		responders.JSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		writeStoreError(w, r, "users.get.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, u)
}

type updateUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, "users.update.invalid_body", err)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidRole, err.Error())
		return
	}

	res, err := h.store.UpdateUser(r.Context(), pathParam(r, "email"), req.Name, role)
	if err != nil {
		writeStoreError(w, r, "users.update.write_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *handlers) updateUserRole(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, "users.role.invalid_body", err)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidRole, err.Error())
		return
	}

	id := pathParam(r, "id")
	res, err := h.store.UpdateUserRole(r.Context(), id, role)
	if err != nil {
		writeStoreError(w, r, "users.role.write_failed", err)
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		log.Info().
			Str("user_id", id).
			Str("role", role.String()).
			Str("changed_by", logger.RedactEmail(claims.Email)).
			Msg("users.role.changed")
	}
	responders.JSON(w, http.StatusOK, res)
}
