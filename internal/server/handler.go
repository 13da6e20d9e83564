package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"legacylift/internal/artifact"
	"legacylift/internal/ingest"
	"legacylift/internal/pipeline"
	"legacylift/internal/session"
	"legacylift/internal/store"
)

const sessionCookie = "legacylift_session"

// Runner executes one migration.
type Runner interface {
	Run(ctx context.Context, repoURL string, obs pipeline.Observer) (*artifact.Bundle, error)
}

type Options struct {
	// Store receives every finished bundle and backs downloads. Nil serves
	// downloads straight from the session.
	Store  store.Store
	Logger *zap.Logger
	// RunTimeout bounds a whole migration; 0 disables it.
	RunTimeout time.Duration
	// AllowedOrigins lists the browser origins admitted cross-origin.
	AllowedOrigins []string
}

type Handler struct {
	runner   Runner
	sessions *session.Registry
	broker   *Broker
	store    store.Store
	log      *zap.Logger
	timeout  time.Duration
	page     *template.Template
	origins  []string
	upgrader *websocket.Upgrader
}

func NewHandler(runner Runner, sessions *session.Registry, opts Options) (*Handler, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if sessions == nil {
		return nil, errors.New("session registry is required")
	}
	page, err := parsePage()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		runner:   runner,
		sessions: sessions,
		broker:   NewBroker(),
		store:    opts.Store,
		log:      logger,
		timeout:  opts.RunTimeout,
		page:     page,
		origins:  opts.AllowedOrigins,
		upgrader: newProgressWSUpgrader(newOriginPolicy(opts.AllowedOrigins)),
	}, nil
}

// session resolves the caller's slot and (re)issues the cookie when the id
// changed.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *session.Slot) {
	var raw string
	if c, err := r.Cookie(sessionCookie); err == nil {
		raw = c.Value
	}
	id, slot := h.sessions.Get(raw)
	if id != raw {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return id, slot
}

// migrate runs one action for a session. On failure the slot keeps its
// bundle and records the user-facing message.
func (h *Handler) migrate(ctx context.Context, sessionID string, slot *session.Slot, repoURL string) (*artifact.Bundle, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		slot.Fail(session.EmptyURLMessage)
		return nil, ingest.ErrEmptyURL
	}
	release, err := slot.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	log := h.log.With(zap.String("session", sessionID), zap.String("repo", repoURL))
	log.Info("migration requested")

	b, err := h.runner.Run(ctx, repoURL, func(e pipeline.Event) {
		h.broker.Publish(sessionID, e)
	})
	if err != nil {
		slot.Fail(session.Message(err))
		return nil, err
	}
	if h.store != nil {
		if _, err := store.SaveBundle(ctx, h.store, b.RunID, b); err != nil {
			// Downloads fall back to the in-memory bundle.
			log.Warn("persist bundle failed", zap.String("run_id", b.RunID), zap.Error(err))
		}
	}
	slot.Replace(b)
	return b, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrEmptyURL):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrClone), errors.Is(err, pipeline.ErrContext):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, slot := h.session(w, r)
	data := pageData{
		Error:   slot.LastError(),
		Running: slot.Running(),
		Bundle:  newBundleView(slot.Current()),
		Deploy:  strings.TrimSpace(artifact.DeployCommands),
	}
	if data.Bundle != nil {
		data.URL = data.Bundle.RepoURL
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, data); err != nil {
		h.log.Warn("render page failed", zap.Error(err))
	}
}

// handleMigrateForm serves the HTML form and redirects back to the page.
func (h *Handler) handleMigrateForm(w http.ResponseWriter, r *http.Request) {
	sid, slot := h.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	_, err := h.migrate(r.Context(), sid, slot, r.PostFormValue("repo_url"))
	if errors.Is(err, session.ErrBusy) {
		http.Error(w, session.Message(err), http.StatusConflict)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	kind, err := artifact.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	_, slot := h.session(w, r)
	b := slot.Current()
	if b == nil {
		http.Error(w, "no artifacts generated yet", http.StatusNotFound)
		return
	}
	a, _ := b.Get(kind)
	content := []byte(a.Content)

	if h.store != nil {
		raw, redirected, err := h.readStored(w, r, b.RunID, kind)
		switch {
		case redirected:
			return
		case err == nil:
			content = raw
		case !errors.Is(err, store.ErrNotFound):
			h.log.Warn("read stored artifact failed", zap.String("run_id", b.RunID), zap.Stringer("kind", kind), zap.Error(err))
		}
	}
	writeAttachment(w, kind, content)
}

// readStored redirects to the backend's own URL when it has one, otherwise
// returns the stored file.
func (h *Handler) readStored(w http.ResponseWriter, r *http.Request, runID string, kind artifact.Kind) ([]byte, bool, error) {
	if u, err := h.store.GetURL(r.Context(), runID, kind.FileName()); err == nil && u != "" {
		http.Redirect(w, r, u, http.StatusFound)
		return nil, true, nil
	}
	raw, err := h.store.Get(r.Context(), runID, kind.FileName())
	return raw, false, err
}

func writeAttachment(w http.ResponseWriter, kind artifact.Kind, content []byte) {
	w.Header().Set("Content-Type", kind.MIMEType()+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", kind.FileName()))
	_, _ = w.Write(content)
}
