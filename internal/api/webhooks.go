package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/webhook"
)

func (s *Server) hubspotWebhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "webhooks are not configured")
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	if err := s.deps.Verifier.Verify(r, body); err != nil {
		zap.L().Warn("api: rejected webhook", zap.Error(err))
		msg := "invalid signature"
		if errors.Is(err, webhook.ErrStaleTimestamp) {
			msg = "stale timestamp"
		}
		writeError(w, http.StatusUnauthorized, msg)
		return
	}

	events, err := webhook.ParseEvents(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	for _, e := range events {
		s.deps.Metrics.RecordWebhookEvent(e.SubscriptionType)
	}

	portals := webhook.Portals(events)
	if s.deps.Launcher != nil {
		for _, p := range portals {
			s.deps.Launcher.Start(p)
		}
	}
	zap.L().Info("api: webhook received",
		zap.Int("events", len(events)),
		zap.Strings("portals", portals),
	)
	w.WriteHeader(http.StatusNoContent)
}
