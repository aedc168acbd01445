package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/confly-app/apiserver/internal/services"
	"github.com/confly-app/apiserver/internal/store"
	"github.com/confly-app/apiserver/types"
)

// AuthHandler exposes the email verification gate and identity resolution.
type AuthHandler struct {
	identity     *services.IdentityService
	verification *services.VerificationService
	logger       *slog.Logger
}

func NewAuthHandler(identity *services.IdentityService, verification *services.VerificationService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, verification: verification, logger: logger}
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

// SendCode handles POST /auth/send-code: issues a verification code and
// emails it to the address.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.verification.SendCode(r.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeErrorDetails(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		h.logger.Error("failed to send verification code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send verification code")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"sent": true})
}

type verifyRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Verify handles POST /auth/verify: checks the submitted code and, on
// success, resolves (or mints) the identity behind the email and hands back
// its bearer token. Every failure mode is the same generic 401.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	ok, err := h.verification.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.logger.Error("verification check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid verification code")
		return
	}

	user, err := h.identity.Resolve(r.Context(), req.Email, req.Fingerprint)
	if err != nil {
		h.logger.Error("identity resolution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve identity")
		return
	}
	writeData(w, http.StatusOK, authResponse{Token: user.AuthToken, User: user})
}

type resolveRequest struct {
	Email       string `json:"email,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

type profileResponse struct {
	User types.User `json:"user"`
}

// Resolve handles POST /auth: strict lookup of an existing identity. It
// never creates users; unknown identifiers get a 404.
//
// The bearer token comes back only on a fingerprint match. A fingerprint is
// an unguessable value minted on the device, so presenting it proves the
// caller is that returning device. An email proves nothing by itself; its
// token is only ever issued by the verification flow, so an email-only
// lookup answers with the profile and no token.
func (h *AuthHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" && req.Fingerprint == "" {
		writeError(w, http.StatusBadRequest, "an email or a fingerprint is required")
		return
	}

	if fingerprint := strings.TrimSpace(req.Fingerprint); fingerprint != "" {
		user, err := h.identity.FromFingerprint(r.Context(), fingerprint)
		if err == nil {
			writeData(w, http.StatusOK, authResponse{Token: user.AuthToken, User: user})
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("identity lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to resolve identity")
			return
		}
	}

	if req.Email != "" {
		user, err := h.identity.ResolveExisting(r.Context(), req.Email, "")
		if err == nil {
			writeData(w, http.StatusOK, profileResponse{User: user})
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("identity lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to resolve identity")
			return
		}
	}

	writeError(w, http.StatusNotFound, "user not found")
}
