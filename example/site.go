package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pie"
	"github.com/dmitrymomot/pie/middlewares"
	"github.com/dmitrymomot/pie/pkg/htmx"
	"github.com/dmitrymomot/pie/pkg/storage"
)

type paste struct {
	Created time.Time `json:"created"`
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
}

type pasteForm struct {
	Title string `param:"title" default:"untitled"`
	Body  string `param:"body"`
}

type uploadForm struct {
	Title string          `param:"title,optional"`
	File  *pie.FileUpload `param:"file"`
}

type clockParams struct {
	Ticks int `param:"ticks" default:"10"`
}

type site struct {
	pastes map[string]paste
	rooms  *hub
	mu     sync.RWMutex
}

func newSite() *site {
	return &site{pastes: make(map[string]paste), rooms: newHub()}
}

// Index lists pastes with the form to add one.
func (s *site) Index(r *pie.Request) (string, error) {
	token, err := middlewares.CSRFToken(r)
	if err != nil {
		return "", err
	}
	return r.Render("index.html", map[string]any{
		"Token":  token,
		"Pastes": s.list(),
	})
}

// About renders a markdown page.
func (s *site) About(r *pie.Request) (string, error) {
	return r.Render("about.md", map[string]any{"Count": s.count()})
}

// Paste stores a new paste. HTMX forms get the new row plus an updated
// counter; plain forms are redirected to the paste.
func (s *site) Paste(r *pie.Request, form pasteForm) (*pie.Response, error) {
	if r.Method() != http.MethodPost {
		return nil, pie.ErrMethodNotAllowed("")
	}
	if strings.TrimSpace(form.Body) == "" {
		return nil, pie.ErrBadRequest("empty paste")
	}

	p := paste{ID: uuid.NewString()[:8], Title: form.Title, Body: form.Body, Created: time.Now()}
	s.mu.Lock()
	s.pastes[p.ID] = p
	s.mu.Unlock()
	r.Logger().InfoContext(r, "paste created", "id", p.ID)

	if htmx.IsPartial(r) {
		return htmx.Respond(pasteRow(p),
			htmx.WithTrigger("paste-created"),
			htmx.WithOOB(pasteCounter(s.count())),
		), nil
	}
	return htmx.Redirect(r, "/show/"+p.ID), nil
}

// Show renders one paste.
func (s *site) Show(r *pie.Request, id string) (string, error) {
	p, ok := s.get(id)
	if !ok {
		return "", pie.ErrNotFound("no such paste")
	}
	return r.Render("show.html", p)
}

// Row renders a single list entry for polling clients.
func (s *site) Row(r *pie.Request, id string) (string, error) {
	p, ok := s.get(id)
	if !ok {
		return "", pie.ErrNotFound("no such paste")
	}
	return r.Render("paste_row", p)
}

// APIPaste serves /api/pastes/{id} as JSON.
func (s *site) APIPaste(id string) (paste, error) {
	p, ok := s.get(id)
	if !ok {
		return paste{}, pie.ErrNotFound("no such paste")
	}
	return p, nil
}

// DeletePaste serves DELETE /api/pastes/{id}.
func (s *site) DeletePaste(id string) *pie.Response {
	s.mu.Lock()
	delete(s.pastes, id)
	s.mu.Unlock()
	return pie.Reply(http.StatusNoContent, nil)
}

// Upload stores a multipart file while it is still arriving.
func (s *site) Upload(r *pie.Request, form uploadForm) (map[string]any, error) {
	obj, err := r.SaveFile(form.File, storage.WithPrefix("uploads"))
	if err != nil {
		return nil, err
	}
	store, err := r.Storage()
	if err != nil {
		return nil, err
	}
	link, err := store.URL(r, obj.Key, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"title":        form.Title,
		"filename":     form.File.Filename,
		"content_type": obj.ContentType,
		"size":         obj.Size,
		"url":          link,
	}, nil
}

// Files streams objects from the in-memory store. S3 links point to the
// bucket instead.
func (s *site) Files(r *pie.Request, key ...string) (*pie.Response, error) {
	store, err := r.Storage()
	if err != nil {
		return nil, err
	}
	rc, err := store.Get(r, strings.Join(key, "/"))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, pie.ErrNotFound("")
	}
	if err != nil {
		return nil, err
	}
	return pie.Reply(http.StatusOK, rc), nil
}

// Clock streams the server time as server-sent events.
func (s *site) Clock(r *pie.Request, p clockParams) *pie.Response {
	ticks := min(max(p.Ticks, 1), 60)
	events := func(yield func(string) bool) {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for i := range ticks {
			if !yield(fmt.Sprintf("id: %d\ndata: %s\n\n", i, time.Now().Format(time.RFC3339))) {
				return
			}
			select {
			case <-t.C:
			case <-r.Done():
				return
			}
		}
	}
	return pie.Reply(http.StatusOK, iter.Seq[string](events),
		pie.Header{Name: "Content-Type", Value: "text/event-stream"},
		pie.Header{Name: "Cache-Control", Value: "no-cache"},
	)
}

// Visits counts page views per session.
func (s *site) Visits(r *pie.Request) (string, error) {
	sess, err := r.Session()
	if err != nil {
		return "", err
	}
	// Stores that round-trip through JSON hand numbers back as float64.
	n := pie.SessionValueOr(sess, "visits", 0.0) + 1
	sess.Set("visits", n)
	return fmt.Sprintf("visits: %.0f", n), nil
}

// Login remembers a chat nickname in the session.
func (s *site) Login(r *pie.Request, nick string) (*pie.Response, error) {
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return nil, pie.ErrBadRequest("nick is required")
	}
	sess, err := r.Session()
	if err != nil {
		return nil, err
	}
	sess.Set("nick", nick)
	return htmx.Redirect(r, "/"), nil
}

// WSChat relays messages between everyone in a room.
func (s *site) WSChat(ctx context.Context, r *pie.Request, ws *pie.WebSocket, room string) error {
	nick := "anonymous"
	if sess, err := r.Session(); err == nil {
		nick = pie.SessionValueOr(sess, "nick", nick)
	}
	if err := ws.Accept(); err != nil {
		return err
	}

	leave := s.rooms.join(room, ws)
	defer leave()
	s.rooms.broadcast(ctx, room, nick+" joined")

	for {
		msg, err := ws.ReceiveText(ctx)
		if errors.Is(err, pie.ErrConnectionClosed) {
			s.rooms.broadcast(context.WithoutCancel(ctx), room, nick+" left")
			return nil
		}
		if err != nil {
			return err
		}
		s.rooms.broadcast(ctx, room, nick+": "+msg)
	}
}

func (s *site) get(id string) (paste, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pastes[id]
	return p, ok
}

func (s *site) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pastes)
}

func (s *site) list() []paste {
	s.mu.RLock()
	out := make([]paste, 0, len(s.pastes))
	for _, p := range s.pastes {
		out = append(out, p)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b paste) int { return b.Created.Compare(a.Created) })
	return out
}
