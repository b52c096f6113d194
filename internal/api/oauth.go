package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stateCookie = "revattr_oauth_state"

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "oauth is not configured")
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/oauth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.deps.Auth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "oauth is not configured")
		return
	}
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+msg)
		return
	}

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(q.Get("state"))) != 1 {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/oauth", MaxAge: -1})

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	portalID, err := s.deps.Auth.Exchange(r.Context(), code)
	if err != nil {
		zap.L().Error("api: oauth exchange", zap.Error(err))
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	syncStarted := false
	if s.deps.Launcher != nil {
		syncStarted = s.deps.Launcher.Start(portalID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "connected",
		"portalId":    portalID,
		"syncStarted": syncStarted,
	})
}
