package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320 // mobile-friendly size

// handleQR serves a PNG QR code pointing at the game's join page.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	if _, err := s.eng.Game(r.Context(), gameID); err != nil {
		writeError(w, r, err)
		return
	}

	base := strings.TrimSuffix(s.opts.PublicURL, "/")
	if base == "" {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}

	png, err := qrcode.Encode(base+"/join/"+gameID, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}
