// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package api serves the motion controller over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Thermoquad/gantry/pkg/motion"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Version is reported by GET /version.
type Version struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
}

// Result is the JSON form of one exchange.
type Result struct {
	Axis      string `json:"axis,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Command   string `json:"command,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Response  string `json:"response"`
	Hex       string `json:"hex"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

type moveRequest struct {
	Speed    *int `json:"speed"`
	Position *int `json:"position"`
}

type valueRequest struct {
	Value *int `json:"value"`
}

// Server routes HTTP requests to a motion.Controller.
type Server struct {
	ctrl    *motion.Controller
	version Version
	router  *mux.Router
}

// NewServer builds the router for ctrl.
func NewServer(ctrl *motion.Controller, version Version) *Server {
	s := &Server{ctrl: ctrl, version: version, router: mux.NewRouter()}

	s.router.HandleFunc("/version", s.versionInfo).Methods("GET")
	s.router.HandleFunc("/stats", s.getStats).Methods("GET")
	s.router.HandleFunc("/axes", s.getAxes).Methods("GET")
	s.router.HandleFunc("/axes/{axis}/position", s.getPosition).Methods("GET")
	s.router.HandleFunc("/axes/{axis}/move", s.move).Methods("POST")
	s.router.HandleFunc("/axes/{axis}/origin", s.origin).Methods("POST")
	s.router.HandleFunc("/axes/{axis}/origin-mode", s.originMode).Methods("POST")
	s.router.HandleFunc("/axes/{axis}/settings/{id:[0-9]+}", s.getSetting).Methods("GET")
	s.router.HandleFunc("/axes/{axis}/settings/{id:[0-9]+}", s.setSetting).Methods("PUT")
	s.router.HandleFunc("/axes/{axis}/microstep", s.setMicrostep).Methods("PUT")
	s.router.HandleFunc("/home", s.home).Methods("POST")
	s.router.HandleFunc("/reset", s.reset).Methods("POST")
	s.router.HandleFunc("/identify", s.identify).Methods("GET")

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debugf("%s %s", r.Method, r.URL.Path)
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until the server fails.
func (s *Server) ListenAndServe(addr string) error {
	h := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("listening on %s", addr)
	return h.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	e := json.NewEncoder(w)
	e.SetIndent("", "    ")
	if err := e.Encode(v); err != nil {
		log.Warnf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, Result{Error: err.Error()})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, stepper.ErrInvalidAxis):
		return http.StatusNotFound
	case stepper.IsCallerError(err):
		return http.StatusBadRequest
	case errors.Is(err, stepper.ErrChannelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, stepper.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func toResult(axis stepper.Axis, channel string, resp *stepper.Response, err error) Result {
	res := Result{Channel: channel}
	if axis.Valid() {
		res.Axis = axis.String()
	}
	if resp != nil {
		res.Channel = resp.Channel
		res.Command, _ = resp.Sent.Payload()
		res.Outcome = resp.Outcome.String()
		res.Response = resp.Text()
		res.Hex = stepper.FormatHex(resp.Data)
		res.ElapsedMS = resp.Elapsed.Milliseconds()
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (s *Server) respond(w http.ResponseWriter, axis stepper.Axis, resp *stepper.Response, err error) {
	writeJSON(w, statusFor(err), toResult(axis, "", resp, err))
}

func (s *Server) respondAll(w http.ResponseWriter, results motion.Results) {
	out := make([]Result, 0, len(results))
	status := http.StatusOK
	for _, r := range results {
		out = append(out, toResult(r.Axis, r.Channel, r.Response, r.Err))
		if r.Err != nil && status == http.StatusOK {
			status = statusFor(r.Err)
		}
	}
	writeJSON(w, status, out)
}

func axisParam(w http.ResponseWriter, r *http.Request) (stepper.Axis, bool) {
	axis, err := stepper.ParseAxis(mux.Vars(r)["axis"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return 0, false
	}
	return axis, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid setting id: %w", err))
		return 0, false
	}
	return id, true
}

func decodeValue(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return 0, false
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing field: value"))
		return 0, false
	}
	return *req.Value, true
}

func (s *Server) versionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Statistics().Snapshot())
}

func (s *Server) getAxes(w http.ResponseWriter, r *http.Request) {
	type axisInfo struct {
		Axis    string `json:"axis"`
		Channel string `json:"channel"`
		Index   int    `json:"index"`
		Min     int    `json:"min"`
		Max     int    `json:"max"`
	}
	table := s.ctrl.Axes()
	out := make([]axisInfo, 0, len(stepper.Axes))
	for _, a := range stepper.Axes {
		b := table[a]
		out = append(out, axisInfo{Axis: a.String(), Channel: b.Channel, Index: b.Index, Min: b.Bound.Min, Max: b.Bound.Max})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	axis, ok := axisParam(w, r)
	if !ok {
		return
	}
	resp, err := s.ctrl.ReadPosition(r.Context(), axis)
	s.respond(w, axis, resp, err)
}

func (s *Server) move(w http.ResponseWriter, r *http.Request) {
	axis, ok := axisParam(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Position == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing field: position"))
		return
	}
	speed := stepper.DefaultOriginSpeed
	if req.Speed != nil {
		speed = *req.Speed
	}
	resp, err := s.ctrl.Move(r.Context(), axis, speed, *req.Position)
	s.respond(w, axis, resp, err)
}

func (s *Server) origin(w http.ResponseWriter, r *http.Request) {
	axis, ok := axisParam(w, r)
	if !ok {
		return
	}
	resp, err := s.ctrl.InitializeOrigin(r.Context(), axis)
	s.respond(w, axis, resp, err)
}

func (s *Server) originMode(w http.ResponseWriter, r *http.Request) {
	axis, ok := axisParam(w, r)
	if !ok {
		return
	}
	resp, err := s.ctrl.SetOriginMode(r.Context(), axis)
	s.respond(w, axis, resp, err)
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	axis, ok := axisParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	resp, err := s.ctrl.ReadSystemSetting(r.Context(), axis, id)
	s.respond(w, axis, resp, err)
}

func (s *Server) setSetting(w http.ResponseWriter, r *http.Request) {
	axis, ok := axisParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	value, ok := decodeValue(w, r)
	if !ok {
		return
	}
	resp, err := s.ctrl.WriteSystemSetting(r.Context(), axis, id, value)
	s.respond(w, axis, resp, err)
}

func (s *Server) setMicrostep(w http.ResponseWriter, r *http.Request) {
	axis, ok := axisParam(w, r)
	if !ok {
		return
	}
	value, ok := decodeValue(w, r)
	if !ok {
		return
	}
	resp, err := s.ctrl.WriteMicrostep(r.Context(), axis, value)
	s.respond(w, axis, resp, err)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	speed := stepper.DefaultOriginSpeed
	if v := r.URL.Query().Get("speed"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid speed: %w", err))
			return
		}
		speed = n
	}
	s.respondAll(w, s.ctrl.HomeAll(r.Context(), speed))
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.respondAll(w, s.ctrl.ResetAll(r.Context()))
}

func (s *Server) identify(w http.ResponseWriter, r *http.Request) {
	s.respondAll(w, s.ctrl.IdentifyAll(r.Context()))
}
