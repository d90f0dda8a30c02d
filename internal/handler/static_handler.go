package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"roomchat/internal/pkg/resp"
)

// landingBody is served on GET / when the public directory has no index.html.
const landingBody = "index"

// HandleLanding serves the landing page: index.html from publicDir when present,
// otherwise a minimal static body.
func HandleLanding(publicDir string) http.HandlerFunc {
	indexPath := filepath.Join(publicDir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
			http.ServeFile(w, r, indexPath)
			return
		}
		resp.RespondHTML(w, landingBody)
	}
}

// StaticFiles serves client assets from publicDir.
func StaticFiles(publicDir string) http.Handler {
	return http.FileServer(http.Dir(publicDir))
}
