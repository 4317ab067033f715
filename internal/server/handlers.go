package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"session-control-plane/internal/device"
	"session-control-plane/internal/session/service"
)

type issueRequest struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"providerId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	DeviceID   string `json:"deviceId"`
	UserAgent  string `json:"userAgent"`
	IPAddress  string `json:"ipAddress"`
}

type tokenPairResponse struct {
	UserID          string    `json:"userId,omitempty"`
	AccessToken     string    `json:"accessToken"`
	RefreshToken    string    `json:"refreshToken"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
	DeviceID        string    `json:"deviceId"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleIssue is called by the gateway after it has authenticated the user
// with the external provider. The unset device fields fall back to the
// forwarded request attributes.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" || req.ProviderID == "" {
		writeError(w, http.StatusBadRequest, "provider and providerId are required")
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.IPAddress == "" {
		req.IPAddress = clientIP(r)
	}

	user, err := s.sessions.ResolveUser(r.Context(), req.Provider, req.ProviderID, req.Name, req.Email)
	if err != nil {
		log.Printf("server: resolve user %s/%s: %v", req.Provider, req.ProviderID, err)
		writeError(w, http.StatusInternalServerError, "could not resolve user")
		return
	}
	pair, err := s.sessions.Issue(r.Context(), user, device.Derive(req.DeviceID, req.UserAgent, req.IPAddress))
	if err != nil {
		log.Printf("server: issue for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "could not issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{
		UserID:          user.ID,
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		DeviceID:        pair.DeviceID,
	})
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	meta := service.RequestMeta{UserAgent: r.UserAgent(), IPAddress: clientIP(r)}
	pair, err := s.sessions.Rotate(r.Context(), req.RefreshToken, meta)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		log.Printf("server: rotate: %v", err)
		writeError(w, http.StatusInternalServerError, "could not rotate tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		DeviceID:        pair.DeviceID,
	})
}

// handleLogout always returns 204: terminate swallows every failure so a
// client can drop its tokens unconditionally.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		s.sessions.Terminate(r.Context(), req.RefreshToken)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	list, err := s.sessions.ListActive(r.Context(), userID)
	if err != nil {
		log.Printf("server: list sessions for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not load sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (s *Server) handleTerminateDevice(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	deviceID := chi.URLParam(r, "deviceID")
	if err := s.sessions.TerminateDevice(r.Context(), userID, deviceID); err != nil {
		log.Printf("server: terminate device %s for user %s: %v", deviceID, userID, err)
		writeError(w, http.StatusInternalServerError, "could not terminate device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTerminateAll(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	except := r.URL.Query().Get("except")
	if err := s.sessions.TerminateAll(r.Context(), userID, except); err != nil {
		log.Printf("server: terminate all for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not terminate sessions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSuspicious lets a client check only its own account.
func (s *Server) handleSuspicious(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "userID")
	if target != UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	suspicious := s.policy.DetectSuspiciousActivity(r.Context(), target)
	writeJSON(w, http.StatusOK, map[string]bool{"suspicious": suspicious})
}

func (s *Server) handleForceLogout(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.policy.ForceLogout(r.Context(), userID, req.Reason); err != nil {
		log.Printf("server: force logout user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not force logout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSecurityStats(w http.ResponseWriter, r *http.Request) {
	stats := s.policy.SecurityStats(r.Context())
	if stats == nil {
		writeError(w, http.StatusServiceUnavailable, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
