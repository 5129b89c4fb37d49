// Scale Station Core
// Copyright (c) 2026 The Scale Station Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Scale Station Core.
//
// Scale Station Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Scale Station Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Scale Station Core.  If not, see <http://www.gnu.org/licenses/>.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/methods"
	"github.com/scalestation/scalestation-core/pkg/api/middleware"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/api/models/requests"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/scalestation/scalestation-core/pkg/service/state"
	"github.com/scalestation/scalestation-core/pkg/service/status"
)

const (
	WebSocketPath = "/api"
	StatusPath    = "/api/status"
	HealthPath    = "/api/health"

	shutdownTimeout = 5 * time.Second
)

var (
	JSONRPCErrorParseError = models.ErrorObject{
		Code:    -32700,
		Message: "Parse error",
	}
	JSONRPCErrorInvalidRequest = models.ErrorObject{
		Code:    -32600,
		Message: "Invalid Request",
	}
	JSONRPCErrorMethodNotFound = models.ErrorObject{
		Code:    -32601,
		Message: "Method not found",
	}
	JSONRPCErrorServerError = models.ErrorObject{
		Code:    -32000,
		Message: "Server error",
	}
)

var errMethodNotFound = errors.New("method not found")

var methodMap = map[string]func(requests.RequestEnv) (any, error){
	models.MethodStatus:  methods.HandleStatus,
	models.MethodVersion: methods.HandleVersion,
}

// Server exposes the station over a JSON-RPC WebSocket and a small REST
// surface. Every notification from the service queue is broadcast to all
// WebSocket sessions.
type Server struct {
	cfg      *config.Instance
	st       *state.State
	notifier *status.Notifier
	phase    requests.PhaseFunc
	ws       *melody.Melody
	limiter  *middleware.IPRateLimiter
	handler  http.Handler
}

func NewServer(
	cfg *config.Instance,
	st *state.State,
	notifier *status.Notifier,
	phase requests.PhaseFunc,
) *Server {
	s := &Server{
		cfg:      cfg,
		st:       st,
		notifier: notifier,
		phase:    phase,
		ws:       melody.New(),
		limiter:  middleware.NewIPRateLimiter(),
	}

	allowedOrigins := cfg.AllowedOrigins()
	s.ws.Upgrader.CheckOrigin = func(r *http.Request) bool {
		return checkOrigin(allowedOrigins, r.Header.Get("Origin"))
	}
	s.ws.HandleConnect(s.handleConnect)
	s.ws.HandleMessage(middleware.WebSocketRateLimitHandler(s.limiter, s.handleWSMessage))
	s.ws.HandleDisconnect(func(session *melody.Session) {
		log.Debug().Str("addr", session.Request.RemoteAddr).Msg("websocket client disconnected")
	})

	s.handler = s.router(allowedOrigins)
	return s
}

func (s *Server) router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.HTTPIPFilterMiddleware(middleware.NewIPFilter(s.cfg.AllowedIPs())))

	corsOrigins := allowedOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Accept"},
	}))

	r.Get(WebSocketPath, func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.NoCache)
		r.Use(chimiddleware.Timeout(config.APIRequestTimeout))
		r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))

		r.Get(StatusPath, s.handleStatus)
		r.Get(HealthPath, s.handleHealth)
	})

	return r
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// checkOrigin allows any origin when no list is configured, and requests
// without an Origin header (non-browser clients) always.
func checkOrigin(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
		return true
	}
	if slices.Contains(allowed, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, methods.StatusResponse(s.st, s.phase))
}

func (*Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp, _ := methods.HandleHealthCheck(requests.RequestEnv{})
	writeJSON(w, resp)
}

func encodeNotification(notif models.Notification) ([]byte, error) {
	data, err := json.Marshal(models.RequestObject{
		JSONRPC: "2.0",
		Method:  notif.Method,
		Params:  notif.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling notification: %w", err)
	}
	return data, nil
}

// handleConnect sends the current component status to the new session only,
// whether or not it changed since the last broadcast.
func (s *Server) handleConnect(session *melody.Session) {
	log.Debug().Str("addr", session.Request.RemoteAddr).Msg("websocket client connected")

	notif, err := s.notifier.Resync()
	if err != nil {
		log.Error().Err(err).Msg("building status for new client")
		return
	}
	data, err := encodeNotification(notif)
	if err != nil {
		log.Error().Err(err).Msg("encoding status for new client")
		return
	}
	if err := session.Write(data); err != nil {
		log.Error().Err(err).Msg("sending status to new client")
	}
}

// Broadcast forwards notifications to every session until ctx is cancelled
// or the channel is closed.
func (s *Server) Broadcast(ctx context.Context, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping websocket broadcast via context cancellation")
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			data, err := encodeNotification(notif)
			if err != nil {
				log.Error().Err(err).Msg("encoding notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil {
				log.Debug().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func sendResponse(session *melody.Session, id models.RPCID, result any) error {
	data, err := json.Marshal(models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}

func sendError(session *melody.Session, id models.RPCID, errObj models.ErrorObject) {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")

	data, err := json.Marshal(models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	})
	if err != nil {
		log.Error().Err(err).Msg("error marshalling error response")
		return
	}
	if err := session.Write(data); err != nil {
		log.Error().Err(err).Msg("error sending error response")
	}
}

func handleRequest(env requests.RequestEnv, req models.RequestObject) (any, error) {
	fn, ok := methodMap[strings.ToLower(req.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMethodNotFound, req.Method)
	}
	env.Params = req.Params
	return fn(env)
}

func (s *Server) handleWSMessage(session *melody.Session, msg []byte) {
	// heartbeat
	if bytes.Equal(msg, []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	if !json.Valid(msg) {
		sendError(session, models.NullRPCID, JSONRPCErrorParseError)
		return
	}

	var req models.RequestObject
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Debug().Err(err).Msg("invalid request object")
		sendError(session, models.NullRPCID, JSONRPCErrorInvalidRequest)
		return
	}

	// an explicit null id is still a request and is answered with id null
	id := models.NullRPCID
	if !req.ID.IsAbsent() {
		id = *req.ID
	}

	if req.JSONRPC != "2.0" {
		log.Debug().Str("jsonrpc", req.JSONRPC).Msg("unsupported payload version")
		sendError(session, id, JSONRPCErrorInvalidRequest)
		return
	}

	if req.Method == "" {
		// clients have nothing to respond to, anything else is malformed
		sendError(session, id, JSONRPCErrorInvalidRequest)
		return
	}

	if req.ID.IsAbsent() {
		log.Debug().Str("method", req.Method).Msg("received notification, ignoring")
		return
	}

	resp, err := handleRequest(requests.RequestEnv{
		Config:  s.cfg,
		State:   s.st,
		Phase:   s.phase,
		ID:      id,
		IsLocal: middleware.ParseRemoteIP(session.Request.RemoteAddr).IsLoopback(),
	}, req)
	if errors.Is(err, errMethodNotFound) {
		sendError(session, id, JSONRPCErrorMethodNotFound)
		return
	} else if err != nil {
		log.Error().Err(err).Str("method", req.Method).Msg("error handling request")
		sendError(session, id, JSONRPCErrorServerError)
		return
	}

	if err := sendResponse(session, id, resp); err != nil {
		log.Error().Err(err).Msg("error sending response")
	}
}

// Serve runs the HTTP server on ln and the broadcaster until ctx is
// cancelled, then shuts both down.
func (s *Server) Serve(ctx context.Context, ln net.Listener, notifications <-chan models.Notification) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.limiter.StartCleanup(ctx)
	go s.Broadcast(ctx, notifications)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.ws.Close(); err != nil {
			log.Debug().Err(err).Msg("closing websocket sessions")
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("error shutting down http server")
		}
	}()

	log.Info().Msgf("api server listening on %s", ln.Addr())
	err := srv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Start listens on the configured address and serves until ctx is cancelled.
func Start(
	ctx context.Context,
	cfg *config.Instance,
	st *state.State,
	notifier *status.Notifier,
	phase requests.PhaseFunc,
	notifications <-chan models.Notification,
) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.APIListen())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.APIListen(), err)
	}
	return NewServer(cfg, st, notifier, phase).Serve(ctx, ln, notifications)
}
