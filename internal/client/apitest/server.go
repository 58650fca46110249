// Package apitest runs an in-memory imitation of the image-generation
// backend for tests. It speaks the same paths and JSON shapes as the real
// service and lets a test script individual endpoints.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// InvokeFunc answers POST /invoke. It returns the HTTP status and the JSON body.
// It may block; ctx is the request context and ends when the client aborts.
type InvokeFunc func(ctx context.Context, req models.GenerationRequest) (int, any)

// Server is a scriptable fake backend. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	token     string
	calls     map[string]int
	requestID string
	status    map[string]int

	infoOK      bool
	infoMessage string

	prompts   []models.Prompt
	nextIndex int

	invoke   InvokeFunc
	reserved any
	logs     []string
	latest   any
	coupons  any
}

// New starts a backend accepting only the bearer token given.
func New(token string) *Server {
	s := &Server{
		token:    token,
		calls:    make(map[string]int),
		status:   make(map[string]int),
		infoOK:   true,
		reserved: 0,
		coupons:  100,
	}
	s.invoke = DefaultInvoke
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(s.count)
	r.Use(s.auth)

	r.Get("/info", s.handleInfo)
	r.Route("/prompts", func(r chi.Router) {
		r.Get("/", s.handleListPrompts)
		r.Post("/", s.handleAddPrompt)
		r.Put("/{index}", s.handleUpdatePrompt)
		r.Delete("/{index}", s.handleDeletePrompt)
	})
	r.Post("/invoke", s.handleInvoke)
	r.Get("/reserved-instances", s.handleReservedStatus)
	r.Post("/reserved-instances", s.handleReservedSet)
	r.Get("/logs", s.handleLogs)
	r.Get("/latest-pic", s.handleLatest)
	r.Get("/coupons", s.handleCoupons)
	return r
}

// count records the call and applies any forced status for the route.
func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, r.URL.Path)
		s.mu.Lock()
		s.calls[key]++
		s.calls[""]++
		s.requestID = r.Header.Get(common.RequestIDHeader)
		code := s.status[key]
		s.mu.Unlock()

		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.token
		s.mu.Unlock()
		if r.Header.Get(common.AuthorizationHeader) != want {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeKey collapses /prompts/{n} so tests can count per route.
func routeKey(method, path string) string {
	if strings.HasPrefix(path, "/prompts/") {
		path = "/prompts/{index}"
	}
	return method + " " + strings.TrimSuffix(path, "/")
}

// Calls returns how many requests hit "METHOD /path". An empty key
// returns the total.
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// LastRequestID returns the X-Request-ID of the latest request.
func (s *Server) LastRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestID
}

// FailWith forces "METHOD /path" to answer with code. Zero clears it.
func (s *Server) FailWith(key string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.status, key)
		return
	}
	s.status[key] = code
}

func (s *Server) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// SetInfo scripts the success flag and message of GET /info.
func (s *Server) SetInfo(ok bool, message string) {
	s.mu.Lock()
	s.infoOK, s.infoMessage = ok, message
	s.mu.Unlock()
}

func (s *Server) SetInvoke(fn InvokeFunc) {
	s.mu.Lock()
	s.invoke = fn
	s.mu.Unlock()
}

// SetReserved sets the raw data value returned by GET /reserved-instances.
func (s *Server) SetReserved(v any) {
	s.mu.Lock()
	s.reserved = v
	s.mu.Unlock()
}

// PushLogs queues chunks; each GET /logs pops one, then returns "".
func (s *Server) PushLogs(chunks ...string) {
	s.mu.Lock()
	s.logs = append(s.logs, chunks...)
	s.mu.Unlock()
}

// SetLatest sets the raw data value of GET /latest-pic. nil omits it.
func (s *Server) SetLatest(v any) {
	s.mu.Lock()
	s.latest = v
	s.mu.Unlock()
}

// SetCoupons sets the raw data value of GET /coupons.
func (s *Server) SetCoupons(v any) {
	s.mu.Lock()
	s.coupons = v
	s.mu.Unlock()
}

// Prompts returns a copy of the stored prompts.
func (s *Server) Prompts() []models.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Prompt(nil), s.prompts...)
}

// DefaultInvoke echoes the request with seed 42 and a single image.
func DefaultInvoke(_ context.Context, req models.GenerationRequest) (int, any) {
	return http.StatusOK, InvokeSuccess(42, req, models.ImageResult{
		Index:     0,
		OSSPath:   "outputs/42-0.png",
		PublicURL: "https://x/img.png",
		ExpiresIn: 60,
	})
}

// InvokeSuccess builds a successful /invoke body.
func InvokeSuccess(seed int64, req models.GenerationRequest, images ...models.ImageResult) map[string]any {
	if images == nil {
		images = []models.ImageResult{}
	}
	return map[string]any{
		"success":         true,
		"seed":            seed,
		"positive_prompt": req.Positive,
		"negative_prompt": req.Negative,
		"images":          images,
		"message":         "ok",
	}
}

// Failure builds a {success:false, message} body.
func Failure(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}

// Blocking returns an InvokeFunc that waits until release is closed or the
// client goes away, then answers like DefaultInvoke.
func Blocking(release <-chan struct{}) InvokeFunc {
	return func(ctx context.Context, req models.GenerationRequest) (int, any) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return DefaultInvoke(ctx, req)
	}
}

// Delayed answers like DefaultInvoke after d.
func Delayed(d time.Duration) InvokeFunc {
	return func(ctx context.Context, req models.GenerationRequest) (int, any) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
		return DefaultInvoke(ctx, req)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok, msg := s.infoOK, s.infoMessage
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, Failure(msg))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msg,
		"data": models.Identity{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts := s.Prompts()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"prompts": prompts,
		"count":   len(prompts),
	})
}

func (s *Server) handleAddPrompt(w http.ResponseWriter, r *http.Request) {
	var in models.PromptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(in.Positive) == "" {
		writeJSON(w, http.StatusOK, Failure("positive prompt is required"))
		return
	}

	s.mu.Lock()
	p := models.Prompt{
		Index:    s.nextIndex,
		Positive: in.Positive,
		Negative: in.Negative,
		Encoded:  models.EncodedPrompt{Positive: encode(in.Positive), Negative: encode(in.Negative)},
	}
	s.nextIndex++
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "prompt added"})
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "bad index", http.StatusBadRequest)
		return
	}
	var in models.PromptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prompts {
		if s.prompts[i].Index == idx {
			s.prompts[i].Positive = in.Positive
			s.prompts[i].Negative = in.Negative
			s.prompts[i].Encoded = models.EncodedPrompt{Positive: encode(in.Positive), Negative: encode(in.Negative)}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "prompt updated"})
			return
		}
	}
	writeJSON(w, http.StatusOK, Failure("prompt not found"))
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "bad index", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prompts {
		if s.prompts[i].Index == idx {
			s.prompts = append(s.prompts[:i], s.prompts[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "prompt deleted"})
			return
		}
	}
	writeJSON(w, http.StatusOK, Failure("prompt not found"))
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	fn := s.invoke
	s.mu.Unlock()

	code, body := fn(r.Context(), req)
	if r.Context().Err() != nil {
		return
	}
	writeJSON(w, code, body)
}

func (s *Server) handleReservedStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	v := s.reserved
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok", "data": v})
}

func (s *Server) handleReservedSet(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Target int `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.reserved = in.Target
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "reserved instances updated",
		"data":      map[string]any{"target": in.Target},
		"recommend": "keep warm during working hours",
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	chunk := ""
	if len(s.logs) > 0 {
		chunk, s.logs = s.logs[0], s.logs[1:]
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok", "data": chunk})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	v := s.latest
	s.mu.Unlock()
	body := map[string]any{"success": true, "message": "ok"}
	if v != nil {
		body["data"] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCoupons(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	v := s.coupons
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok", "data": v})
}

func encode(s string) string { return strings.ReplaceAll(s, " ", "_") }
