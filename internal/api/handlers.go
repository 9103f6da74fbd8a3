// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/tvinput/internal/events"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/streamcfg"
)

type sourceEntry struct {
	ID     source.ID `json:"id"`
	Number int32     `json:"number"`
}

type sourcesResponse struct {
	Sources []sourceEntry `json:"sources"`
}

type resultResponse struct {
	Source     source.ID   `json:"source"`
	Result     status.Code `json:"result"`
	ResultName string      `json:"resultName"`
}

type nextResponse struct {
	Source source.ID `json:"source"`
	Empty  bool      `json:"empty"`
}

type connectStatusResponse struct {
	Source    source.ID   `json:"source"`
	Connected bool        `json:"connected"`
	Result    status.Code `json:"result"`
}

type deviceResponse struct {
	Device  events.DeviceInfo `json:"device"`
	HDMIPIP bool              `json:"hdmiPip"`
}

type streamsResponse struct {
	Device  source.ID          `json:"device"`
	Status  status.Stream      `json:"status"`
	Streams []streamcfg.Config `json:"streams"`
}

type statePatch struct {
	TunnelID      *int32 `json:"tunnelId"`
	StreamGivenID *int32 `json:"streamGivenId"`
	DeviceGivenID *int32 `json:"deviceGivenId"`
}

// pathSource parses {id}. INVALID is rejected here; it is a valid value
// for the coordinator but never a routable resource.
func pathSource(r *http.Request) (source.ID, error) {
	raw := chi.URLParam(r, "id")
	id, err := source.Parse(raw)
	if err != nil {
		return source.Invalid, err
	}
	if !id.Valid() {
		return source.Invalid, fmt.Errorf("%w: %q", source.ErrUnknownSource, raw)
	}
	return id, nil
}

func wantActive(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("wantActive")
	if raw == "" {
		return false, errMissingWantActive
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %q", errMissingWantActive, raw)
	}
	return v, nil
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	ids, err := s.coord.GetSupportedSources(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := sourcesResponse{Sources: make([]sourceEntry, 0, len(ids))}
	for _, id := range ids {
		resp.Sources = append(resp.Sources, sourceEntry{ID: id, Number: int32(id)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	id, err := s.coord.CurrentSource(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceEntry{ID: id, Number: int32(id)})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePatchState(w http.ResponseWriter, r *http.Request) {
	var p statePatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	ctx := r.Context()
	apply := []struct {
		v  *int32
		fn func(context.Context, int32) error
	}{
		{p.TunnelID, s.coord.SetStreamTunnelID},
		{p.StreamGivenID, s.coord.SetStreamGivenID},
		{p.DeviceGivenID, s.coord.SetDeviceGivenID},
	}
	for _, a := range apply {
		if a.v == nil {
			continue
		}
		if err := a.fn(ctx, *a.v); err != nil {
			writeError(w, r, err)
			return
		}
	}
	s.handleState(w, r)
}

type transitionFunc func(context.Context, source.ID) (status.Code, error)

// handleTransition runs start, stop or switch. A non-zero platform result is
// a successful request: it is returned in the body with 200.
func (s *Server) handleTransition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathSource(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		code, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resultResponse{Source: id, Result: code, ResultName: code.String()})
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	id, err := pathSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	want, err := wantActive(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code, err := s.coord.CheckSourceStatus(r.Context(), id, want)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Source: id, Result: code, ResultName: code.String()})
}

func (s *Server) handleConnectStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code, err := s.coord.SourceConnectStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, connectStatusResponse{Source: id, Connected: code > 0, Result: code})
}

// handleDevice describes the device behind a source the way a device event
// would, using the live cable state.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	id, err := pathSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	raw := events.RawDeviceEvent{
		Type:       events.DeviceAvailable,
		DeviceID:   id,
		DeviceType: events.DeviceTypeOf(id),
	}
	if id.IsHDMI() {
		port, err := s.coord.HdmiPort(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		raw.PortID = port
	}
	if !id.IsDTVKit() {
		code, err := s.coord.SourceConnectStatus(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		raw.HasCableStatus = true
		raw.CableStatus = int32(events.CableDisconnected)
		if code > 0 {
			raw.CableStatus = int32(events.CableConnected)
		}
	}
	ev, _ := events.Classify(raw)

	pip, err := s.coord.IsHdmiPIP(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse{Device: ev.Device, HDMIPIP: pip})
}

func (s *Server) handleNextWaiting(w http.ResponseWriter, r *http.Request) {
	want, err := wantActive(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.coord.NextWaiting(r.Context(), want)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nextResponse{Source: id, Empty: id == source.Invalid})
}

func (s *Server) handleNextHeld(w http.ResponseWriter, r *http.Request) {
	id, err := s.coord.NextHeld(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nextResponse{Source: id, Empty: id == source.Invalid})
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	id, err := pathSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfgs, st := s.coord.Streams().Configurations(id)
	code := http.StatusOK
	if st != status.StatusOK {
		code = http.StatusNotFound
	}
	if cfgs == nil {
		cfgs = []streamcfg.Config{}
	}
	writeJSON(w, code, streamsResponse{Device: id, Status: st, Streams: cfgs})
}
