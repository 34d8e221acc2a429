// Package web serves the bot's HTTP surface: a health probe and the media
// proxy that hands forum images to the inquiry endpoint.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/inquirybot/core/logger"
	"github.com/m3rciful/inquirybot/internal/forumindex"
)

const pingTimeout = 2 * time.Second

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports in-flight wizard sessions.
type SessionCounter interface {
	Sessions() int
}

// AttachmentLookup finds indexed attachments by Telegram file id.
type AttachmentLookup interface {
	AttachmentByFileID(ctx context.Context, fileID string) (forumindex.Attachment, error)
}

// FileOpener streams a Telegram file.
type FileOpener interface {
	Open(fileID string) (io.ReadCloser, error)
}

// Deps are the collaborators behind the routes. Media routes are mounted
// only when both Attachments and Files are set.
type Deps struct {
	DB          Pinger
	Sessions    SessionCounter
	Attachments AttachmentLookup
	Files       FileOpener
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(d))
	if d.Attachments != nil && d.Files != nil {
		r.Get("/media/{fileID}", media(d))
	}
	return r
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Sessions int    `json:"sessions"`
}

func healthz(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := healthStatus{Status: "ok", Database: "ok"}
		code := http.StatusOK
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := d.DB.Ping(ctx); err != nil {
				st.Status, st.Database = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if d.Sessions != nil {
			st.Sessions = d.Sessions.Sessions()
		}
		respondJSON(w, st, code)
	}
}

func media(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := chi.URLParam(r, "fileID")
		att, err := d.Attachments.AttachmentByFileID(r.Context(), fileID)
		switch {
		case errors.Is(err, forumindex.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
			return
		case err != nil:
			logger.Warn(r.Context(), "forum.index", "media.lookup.fail", slog.String("err", err.Error()))
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		case !att.IsImage():
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		body, err := d.Files.Open(fileID)
		if err != nil {
			logger.Warn(r.Context(), "tg", "media.fetch.fail",
				slog.String("file_id", fileID),
				slog.String("err", err.Error()),
			)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", att.MIMEType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if _, err := io.Copy(w, body); err != nil {
			logger.Debug(r.Context(), "tg", "media.copy.fail", slog.String("err", err.Error()))
		}
	}
}

func respondJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server runs the router on a TCP listener.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewServer prepares a server on addr.
func NewServer(addr string, h http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "web", "serve.fail", slog.String("err", err.Error()))
		}
	}()
	logger.Info(context.Background(), "web", "listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
