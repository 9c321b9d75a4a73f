package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
	"github.com/Jtensminger/deep-systems-analysis/pkg/editor"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/observability"
	"github.com/Jtensminger/deep-systems-analysis/pkg/persist"
	"github.com/Jtensminger/deep-systems-analysis/pkg/render"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

const (
	maxDocumentBytes = 8 << 20
	shutdownTimeout  = 5 * time.Second
)

// serveCommand creates the serve command exposing the editor over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve the editor to a canvas front end over HTTP",
		Long: `Serve a document over a JSON API so that a browser canvas can drive the
editor: pointer and key events, zoom, save, and rendered DOT or SVG.

Every request that changes the scene runs one editor tick before it returns,
so responses reflect the settled scene.`,
		Example: `  sysdiag serve plant.json --addr 127.0.0.1:8080
  curl -X POST localhost:8080/api/events -d '[{"type":"key","key":"+"}]'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.config().Server.Addr
			}
			if err := errors.ValidateListenAddr(addr); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), c.documentPath(args), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, path, addr string, noCache bool) error {
	sc, err := c.openScene(path)
	if err != nil {
		return err
	}
	rc, err := c.newCache(noCache)
	if err != nil {
		return err
	}
	defer rc.Close()

	s := newServer(sc, path, render.NewRenderer(rc, render.WithLogger(c.Logger)), c.Logger, c.sceneOptions()...)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	c.Logger.Info("serving", "addr", addr, "document", path)

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(errors.ErrCodeIO, err, "listen on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		c.Logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// =============================================================================
// Server
// =============================================================================

// server serializes HTTP requests onto one editor.
type server struct {
	mu        sync.Mutex
	ed        *editor.Editor
	renderer  *render.Renderer
	logger    *log.Logger
	sceneOpts []scene.Option
}

func newServer(sc *scene.Scene, path string, r *render.Renderer, logger *log.Logger, opts ...scene.Option) *server {
	return &server{
		ed: editor.New(sc,
			editor.WithLogger(logger),
			editor.WithDocumentPath(path),
			editor.WithSceneOptions(opts...),
		),
		renderer:  r,
		logger:    logger,
		sceneOpts: opts,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/document", s.handleGetDocument)
		r.Put("/document", s.handlePutDocument)
		r.Post("/events", s.handleEvents)
		r.Post("/zoom", s.handleZoom)
		r.Post("/save", s.handleSave)
		r.Get("/render", s.handleRender)
		r.Get("/elements", s.handleElements)
		r.Delete("/elements/{id}", s.handleDeleteElement)
	})
	return r
}

// observe reports every request to the HTTP hooks and the log.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		observability.HTTP().OnRequest(ctx, r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(ctx, r.Method, r.URL.Path, status, d)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status,
			"duration", d.Round(time.Microsecond), "id", middleware.GetReqID(ctx))
	})
}

// tick runs one editor pass. The caller holds mu.
func (s *server) tick(ctx context.Context) {
	if err := s.ed.Tick(ctx); err != nil {
		s.logger.Warn("tick failed", "err", err)
	}
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type statusBody struct {
	Path      string   `json:"path"`
	Tool      string   `json:"tool"`
	Status    string   `json:"status"`
	Dirty     bool     `json:"dirty"`
	Zoom      float64  `json:"zoom"`
	Ticks     uint64   `json:"ticks"`
	Selection []uint32 `json:"selection"`
}

type elementBody struct {
	ID         uint32  `json:"id"`
	Kind       string  `json:"kind"`
	Name       string  `json:"name,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Rotation   float64 `json:"rotation"`
	Scale      float64 `json:"scale"`
	Selected   bool    `json:"selected,omitempty"`
	Incomplete bool    `json:"incomplete,omitempty"`
}

type loadBody struct {
	Warnings []string `json:"warnings"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: errors.UserMessage(err), Code: string(errors.GetCode(err))})
}

// statusFor maps error codes onto HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeDocumentParse, errors.ErrCodeDocumentReference:
		return http.StatusBadRequest
	case errors.ErrCodeUnknownEntity:
		return http.StatusNotFound
	case errors.ErrCodeInvariantViolation:
		return http.StatusConflict
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// status snapshots the editor. The caller holds mu.
func (s *server) status() statusBody {
	sc := s.ed.Scene()
	sel := []uint32{}
	for _, e := range sc.Selection() {
		sel = append(sel, uint32(e))
	}
	return statusBody{
		Path:      s.ed.Path(),
		Tool:      s.ed.Tool().String(),
		Status:    s.ed.Status(),
		Dirty:     s.ed.Dirty(),
		Zoom:      sc.Zoom(),
		Ticks:     s.ed.Ticks(),
		Selection: sel,
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	wm, err := persist.Save(s.ed.Scene())
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := document.Write(w, wm); err != nil {
		s.logger.Warn("write document", "err", err)
	}
}

func (s *server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	wm, err := document.Parse(data)
	if err != nil {
		writeError(w, err)
		return
	}
	start := time.Now()
	res, err := persist.Load(wm, s.sceneOpts...)
	warnings := 0
	if res != nil {
		warnings = len(res.Warnings)
	}
	observability.Document().OnLoad(r.Context(), "", warnings, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	s.ed.SetScene(res.Scene)
	s.tick(r.Context())
	s.mu.Unlock()

	body := loadBody{Warnings: []string{}}
	for _, warn := range res.Warnings {
		body.Warnings = append(body.Warnings, warn.Error())
	}
	writeJSON(w, http.StatusOK, body)
}

// eventBody is one input event of POST /api/events.
type eventBody struct {
	Type   string  `json:"type"` // pointer-down, pointer-drag, pointer-up, key or tool
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Target uint32  `json:"target,omitempty"`
	Key    string  `json:"key,omitempty"`
	Tool   string  `json:"tool,omitempty"`
}

func (b eventBody) event() (editor.Event, error) {
	pos := geom.V(b.X, b.Y)
	switch b.Type {
	case "pointer-down":
		return editor.PointerDown{Pos: pos, Target: store.Entity(b.Target)}, nil
	case "pointer-drag":
		return editor.PointerDrag{Pos: pos}, nil
	case "pointer-up":
		return editor.PointerUp{Pos: pos}, nil
	case "key":
		if b.Key == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "key event without key")
		}
		return editor.KeyPress{Key: b.Key}, nil
	case "tool":
		t, err := editor.ParseTool(b.Tool)
		if err != nil {
			return nil, err
		}
		return editor.SelectTool{Tool: t}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown event type %q", b.Type)
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var bodies []eventBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&bodies); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode events"))
		return
	}
	events := make([]editor.Event, 0, len(bodies))
	for _, b := range bodies {
		ev, err := b.event()
		if err != nil {
			writeError(w, err)
			return
		}
		events = append(events, ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		s.ed.Push(ev)
	}
	s.tick(r.Context())
	writeJSON(w, http.StatusOK, s.status())
}

func (s *server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Zoom float64 `json:"zoom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode zoom"))
		return
	}
	if body.Zoom <= 0 {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "zoom must be positive, got %v", body.Zoom))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.Do(editor.SetZoom(body.Zoom))
	s.tick(r.Context())
	writeJSON(w, http.StatusOK, s.status())
}

func (s *server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Save(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	f := render.FormatSVG
	if q := r.URL.Query().Get("format"); q != "" {
		var err error
		if f, err = render.ParseFormat(q); err != nil {
			writeError(w, err)
			return
		}
	}

	s.mu.Lock()
	wm, err := persist.Save(s.ed.Scene())
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	data, cached, err := s.renderer.Render(r.Context(), wm, f)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("X-Cache", strconv.FormatBool(cached))
	w.Write(data)
}

func (s *server) handleElements(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.ed.Scene()

	out := []elementBody{}
	for _, group := range [][]store.Entity{sc.Systems(), sc.Interfaces(), sc.ExternalEntities(), sc.Flows(), sc.Terminals()} {
		for _, e := range group {
			t := sc.WorldTransform(e)
			out = append(out, elementBody{
				ID:         uint32(e),
				Kind:       sc.Kind(e).String(),
				Name:       sc.Info(e).Name,
				X:          t.Translation.X,
				Y:          t.Translation.Y,
				Rotation:   t.Rotation,
				Scale:      sc.Scale(e),
				Selected:   sc.Selected(e),
				Incomplete: sc.Incomplete(e),
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "element id"))
		return
	}
	e := store.Entity(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Apply(r.Context(), editor.Delete(e)); err != nil {
		writeError(w, err)
		return
	}
	s.tick(r.Context())
	writeJSON(w, http.StatusOK, s.status())
}
