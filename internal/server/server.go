package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/journals/internal/database"
	"github.com/TobiSchelling/journals/internal/digest"
	"github.com/TobiSchelling/journals/internal/feed"
	"github.com/TobiSchelling/journals/internal/reader"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const maxUploadBytes = 8 << 20

// Server is the HTTP front end for a reading session.
type Server struct {
	sess  *reader.Session
	db    *database.DB
	log   *zap.Logger
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server.
func New(sess *reader.Session, db *database.DB, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"plain":    feed.Plain,
		"inc":      func(i int) int { return i + 1 },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so its {{define}} blocks don't collide.
	pageNames := []string{"index.html", "item.html", "saved.html", "digest.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{sess: sess, db: db, log: log, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /feeds", s.handleAddFeed)
	s.mux.HandleFunc("POST /feeds/upload", s.handleUpload)
	s.mux.HandleFunc("GET /items/{n}", s.handleItem)
	s.mux.HandleFunc("POST /items/{n}/save", s.handleSave)
	s.mux.HandleFunc("GET /saved", s.handleSaved)
	s.mux.HandleFunc("POST /saved/{id}/delete", s.handleDeleteSaved)
	s.mux.HandleFunc("GET /digest", s.handleDigest)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", map[string]any{
		"Feeds":   s.sess.Feeds(),
		"Items":   s.sess.Items(),
		"Current": s.sess.CurrentLink(),
		"Flash":   r.URL.Query().Get("msg"),
		"Error":   r.URL.Query().Get("err"),
	})
}

func (s *Server) handleAddFeed(w http.ResponseWriter, r *http.Request) {
	n, err := s.sess.AddFeed(r.Context(), r.FormValue("url"))
	if err != nil {
		redirectWith(w, r, "/", "err", err.Error())
		return
	}
	redirectWith(w, r, "/", "msg", fmt.Sprintf("Added %d items.", n))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("feed")
	if err != nil {
		redirectWith(w, r, "/", "err", "No feed file uploaded.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		redirectWith(w, r, "/", "err", "Reading upload: "+err.Error())
		return
	}

	n, err := s.sess.LoadDocument(header.Filename, string(data))
	if err != nil {
		redirectWith(w, r, "/", "err", err.Error())
		return
	}
	redirectWith(w, r, "/", "msg", fmt.Sprintf("Loaded %d items from %s.", n, header.Filename))
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	v, err := s.sess.Show(r.Context(), index)
	if errors.Is(err, reader.ErrNoSuchItem) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Error("showing item", zap.Int("index", index), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	source, _ := s.sess.FeedOf(index)
	saved, _ := s.db.GetSavedAbstractByLink(v.Item.Link)
	total := len(s.sess.Items())

	var prev, next int
	if index > 0 {
		prev = index
	}
	if index+1 < total {
		next = index + 2
	}

	s.render(w, "item.html", map[string]any{
		"View":     v,
		"Number":   index + 1,
		"Total":    total,
		"Prev":     prev,
		"Next":     next,
		"Document": v.Document(),
		"Feed":     source.Name,
		"Saved":    saved != nil,
		"Flash":    r.URL.Query().Get("msg"),
		"Error":    r.URL.Query().Get("err"),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := fmt.Sprintf("/items/%d", index+1)

	id, err := s.sess.Save(r.Context(), s.db, index)
	switch {
	case errors.Is(err, reader.ErrNoSuchItem):
		http.NotFound(w, r)
	case err != nil:
		s.log.Warn("saving abstract", zap.Int("index", index), zap.Error(err))
		redirectWith(w, r, back, "err", err.Error())
	case id == 0:
		redirectWith(w, r, back, "msg", "Already saved.")
	default:
		redirectWith(w, r, back, "msg", "Saved.")
	}
}

func (s *Server) handleSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.db.GetSavedAbstracts()
	if err != nil {
		s.log.Error("listing saved abstracts", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, _ := s.db.GetStats()

	s.render(w, "saved.html", map[string]any{
		"Saved": saved,
		"Stats": stats,
		"Flash": r.URL.Query().Get("msg"),
	})
}

func (s *Server) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/saved", http.StatusFound)
		return
	}
	deleted, err := s.db.DeleteSavedAbstract(id)
	if err != nil {
		s.log.Error("deleting saved abstract", zap.Int64("id", id), zap.Error(err))
	}
	if !deleted {
		redirectWith(w, r, "/saved", "msg", "Nothing to remove.")
		return
	}
	redirectWith(w, r, "/saved", "msg", "Removed.")
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	saved, err := s.db.GetSavedAbstracts()
	if err != nil {
		s.log.Error("listing saved abstracts", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "digest.html", map[string]any{
		"Markdown": digest.Compose(saved),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.log.Error("rendering template", zap.String("template", name), zap.Error(err))
	}
}

// itemIndex reads the 1-based item number from the path.
func itemIndex(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func redirectWith(w http.ResponseWriter, r *http.Request, path, key, value string) {
	http.Redirect(w, r, path+"?"+url.Values{key: {value}}.Encode(), http.StatusSeeOther)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve runs the server on 127.0.0.1:port until ctx is canceled.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.log.Info("server listening", zap.String("url", URL(port)))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.log.Info("shutting down server")
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// URL returns the local address Serve listens on.
func URL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}
