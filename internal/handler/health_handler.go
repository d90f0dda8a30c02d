package handler

import (
	"net/http"

	"roomchat/internal/pkg/resp"
)

// HandleHealth reports liveness together with relay counters.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, conns := deps.Hub.Stats()

		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"service":     "roomchat",
			"rooms":       rooms,
			"connections": conns,
			"users":       deps.Users.Count(),
			"roomList":    deps.Users.Rooms(),
		})
	}
}
