// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/log"
)

// SSE event names per bus topic.
const (
	sseEventTv     = "tv"
	sseEventDevice = "device"
)

var errNoBus = errors.New("event stream unavailable")

// handleEvents streams platform notifications and classified device events
// as server-sent events until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errNoBus.Error()})
		return
	}
	ctx := r.Context()

	tv, err := s.bus.Subscribe(ctx, bus.TopicTvEvents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = tv.Close() }()
	dev, err := s.bus.Subscribe(ctx, bus.TopicDeviceEvents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = dev.Close() }()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	logger := log.WithComponentFromContext(ctx, "api")
	logger.Debug().Str(log.FieldEvent, "api.sse_open").Msg("event stream opened")
	defer logger.Debug().Str(log.FieldEvent, "api.sse_closed").Msg("event stream closed")

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		var (
			name string
			msg  bus.Message
			ok   bool
		)
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			continue
		case msg, ok = <-tv.C():
			name = sseEventTv
		case msg, ok = <-dev.C():
			name = sseEventDevice
		}
		if !ok {
			return
		}
		data, err := json.Marshal(msg)
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "api.sse_encode_failed").Msg("dropping event")
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
