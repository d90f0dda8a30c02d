/*
Package handler provides the HTTP handlers and routing setup for the chat relay.

This file defines the main Router, applying middleware like request IDs, logging, CORS and
panic recovery before delegating to the landing page, static assets, the health check and
the WebSocket endpoint.
*/
package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"roomchat/internal/pkg/limiter"
	"roomchat/internal/pkg/logx"
)

const (
	// ConnectRate is the sustained number of WebSocket connections per second allowed per IP.
	ConnectRate = 1

	// ConnectBurst is the number of WebSocket connections an IP may open at once.
	ConnectBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The returned stop function releases background resources held by the router.
func Router(deps *AppDeps) (http.Handler, func()) {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(deps),
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))
	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(wsUpgrader, deps))

	r.Get("/", HandleLanding(deps.Config.PublicDir))
	r.Handle("/*", StaticFiles(deps.Config.PublicDir))

	return r, connectLimiter.Stop
}

// originChecker accepts every origin in development. Elsewhere it accepts the configured
// origins, or only same-host origins when none are configured.
func originChecker(deps *AppDeps) func(r *http.Request) bool {
	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[strings.ToLower(origin)] = struct{}{}
	}

	return func(r *http.Request) bool {
		if deps.Config.IsDevelopment() {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		if len(allowedOrigins) > 0 {
			if _, ok := allowedOrigins[strings.ToLower(origin)]; ok {
				return true
			}
		} else if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}

		logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
		return false
	}
}
