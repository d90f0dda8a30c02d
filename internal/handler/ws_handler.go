/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function. It upgrades the HTTP connection, assigns the
connection its identity and runs the client lifecycle. Rate limiting is applied by the router.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"roomchat/internal/app/chat"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/randx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The handler blocks for the lifetime of the connection.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := chat.NewClient(connID, conn, deps.Hub, deps.Users, deps.Filter)

		if !deps.Hub.Register(client) {
			logx.Warn("WebSocket connection rejected: server shutting down.", "conn_id", connID)
			if err := conn.Close(); err != nil {
				logx.Debug("Close of rejected connection failed", "error", err.Error())
			}
			return
		}

		logx.Info("WebSocket connection established", "conn_id", connID)

		go client.WritePump()

		client.ReadPump()
	}
}
