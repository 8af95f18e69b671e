package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

//go:embed frontend
var frontendFS embed.FS

const (
	maxReferenceLen    = 100
	maxRequestBody     = 4 << 10
	topicsTimeout      = 30 * time.Second
	imagesTimeout      = 2 * time.Minute
	statusCheckTimeout = 10 * time.Second
	statusCheckRef     = "John 3:16"
)

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
	// Cleanup stale entries every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	refill := int(time.Since(b.lastSeen) / rl.interval)
	if refill > 0 {
		b.tokens = min(b.tokens+refill*rl.rate, rl.rate)
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// clientIP strips the port from the remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server is the main HTTP server.
type Server struct {
	mux      *http.ServeMux
	store    *Store
	topics   TopicSource
	images   ImageSource
	events   *Broadcaster
	boardRL  *rateLimiter
	toggleRL *rateLimiter
}

// NewServer creates a configured HTTP server. A nil topic source always
// draws from the built-in words; a nil image source yields placeholders.
func NewServer(store *Store, topics TopicSource, images ImageSource) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		store:    store,
		topics:   topics,
		images:   images,
		events:   NewBroadcaster(),
		boardRL:  newRateLimiter(10, time.Minute), // 10 boards/min per IP
		toggleRL: newRateLimiter(60, time.Second), // 60 toggles/sec per IP
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	// Board API
	s.mux.HandleFunc("POST /api/boards", s.handleCreateBoard)
	s.mux.HandleFunc("GET /api/boards", s.handleListBoards)
	s.mux.HandleFunc("GET /api/boards/{id}", s.handleGetBoard)
	s.mux.HandleFunc("POST /api/boards/{id}/cells/{index}/toggle", s.handleToggle)
	s.mux.HandleFunc("POST /api/boards/{id}/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/boards/{id}/regenerate", s.handleRegenerate)
	s.mux.HandleFunc("GET /api/boards/{id}/events", s.handleBoardEvents)
	s.mux.HandleFunc("GET /api/boards/{id}/ws", s.handleBoardSocket)

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	fileServer := http.FileServer(http.FS(frontendDir))
	s.mux.HandleFunc("GET /board/{id}", s.handleBoardPage)
	s.mux.Handle("GET /", fileServer)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https://pixabay.com https://cdn.pixabay.com; media-src 'self'; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// checkResult is the outcome of one live call to a collaborator.
type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

func runCheck(ctx context.Context, configured bool, call func(context.Context) error) checkResult {
	if !configured {
		return checkResult{Status: "not_configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, statusCheckTimeout)
	defer cancel()

	start := time.Now()
	err := call(ctx)
	res := checkResult{Status: "success", ResponseTime: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
	}
	return res
}

// GET /api/status: which external collaborators are configured. With
// ?check=1 both are called and timed.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"topics": s.topics != nil,
		"images": s.images != nil,
		"boards": s.store.Count(),
		"time":   time.Now().UTC(),
	}

	if r.URL.Query().Get("check") != "" {
		if !s.boardRL.allow(clientIP(r)) {
			jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
			return
		}
		status["checks"] = map[string]checkResult{
			"topics": runCheck(r.Context(), s.topics != nil, func(ctx context.Context) error {
				_, err := s.topics.Topics(ctx, statusCheckRef)
				return err
			}),
			"images": runCheck(r.Context(), s.images != nil, func(ctx context.Context) error {
				_, err := s.images.Search(ctx, searchTerm("cross"))
				return err
			}),
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// --- Board handlers ---

type boardRequest struct {
	Reference string `json:"reference"`
}

// decodeBoardRequest reads an optional JSON body. An empty body means no
// reference.
func decodeBoardRequest(w http.ResponseWriter, r *http.Request) (boardRequest, error) {
	var req boardRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	req.Reference = sanitizeReference(req.Reference)
	return req, nil
}

// POST /api/boards: generate a board, from a scripture reference if given.
func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	if !s.boardRL.allow(clientIP(r)) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	req, err := decodeBoardRequest(w, r)
	if err != nil {
		badBoardRequest(w, err)
		return
	}

	rng := newRand()
	topics, fallback := s.fetchTopics(r.Context(), req.Reference, rng)
	sess := s.store.CreateSession(req.Reference, topics, fallback, NewImageResolver(s.images, newRand()), newEventPresenter(s.events))
	s.startImageLoad(sess)

	writeJSON(w, http.StatusCreated, sess.View())
}

func badBoardRequest(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonError(w, "Request too large", http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, "Invalid request", http.StatusBadRequest)
}

// GET /api/boards: list all boards.
func (s *Server) handleListBoards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListSessions())
}

// GET /api/boards/{id}: current board state.
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "Board not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// POST /api/boards/{id}/cells/{index}/toggle: mark or unmark a cell.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if !s.toggleRL.allow(clientIP(r)) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "Board not found", http.StatusNotFound)
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		jsonError(w, "Cell index must be a number", http.StatusBadRequest)
		return
	}

	report, err := s.toggle(sess, index)
	if err != nil {
		jsonError(w, "Cell index out of range", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// toggle applies a cell activation. Subscribers hear about it through the
// session's presenter, in the order the activations were applied.
func (s *Server) toggle(sess *Session, index int) (CompletionReport, error) {
	_, report, err := sess.Toggle(index)
	if err != nil {
		log.Printf("toggle on board %s: %v", sess.ID, err)
	}
	return report, err
}

// POST /api/boards/{id}/reset: clear the marks, keep the words.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "Board not found", http.StatusNotFound)
		return
	}

	sess.Reset()
	s.startImageLoad(sess)
	writeJSON(w, http.StatusOK, sess.View())
}

// POST /api/boards/{id}/regenerate: new words on a new board.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if !s.boardRL.allow(clientIP(r)) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "Board not found", http.StatusNotFound)
		return
	}

	req, err := decodeBoardRequest(w, r)
	if err != nil {
		badBoardRequest(w, err)
		return
	}

	rng := newRand()
	topics, fallback := s.fetchTopics(r.Context(), req.Reference, rng)
	sess.Regenerate(req.Reference, topics, fallback, NewImageResolver(s.images, newRand()))
	s.startImageLoad(sess)

	writeJSON(w, http.StatusOK, sess.View())
}

// GET /api/boards/{id}/events: SSE stream.
func (s *Server) handleBoardEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "Board not found", http.StatusNotFound)
		return
	}

	s.events.ServeSSE(w, r, sess.ID, func(c *client) {
		// Send the full board on connect.
		s.sendBoardState(c, sess)
	})
}

func (s *Server) sendBoardState(c *client, sess *Session) {
	data, err := json.Marshal(boardStateEvent{Type: eventBoardState, Board: sess.View()})
	if err != nil {
		log.Printf("encode board %s: %v", sess.ID, err)
		return
	}
	c.send(string(data))
}

// --- Collaborators ---

// fetchTopics returns 24 topics and, when they are the built-in words, the
// reason shown to players. Topic source failures are logged.
func (s *Server) fetchTopics(ctx context.Context, reference string, rng *rand.Rand) ([]Topic, string) {
	ctx, cancel := context.WithTimeout(ctx, topicsTimeout)
	defer cancel()

	topics, fallback, err := fetchTopics(ctx, s.topics, reference, rng)
	if err != nil {
		log.Printf("Topic source failed for %q, using built-in words: %v", reference, err)
	}
	return topics, fallback
}

// startImageLoad resolves the missing images of a session's current board in
// the background. Results that arrive after the board changed are dropped.
func (s *Server) startImageLoad(sess *Session) {
	generation, resolver, jobs := sess.pendingImages()
	if len(jobs) == 0 || resolver == nil {
		return
	}
	go s.loadImages(sess, generation, resolver, jobs)
}

func (s *Server) loadImages(sess *Session, generation uint64, resolver *ImageResolver, jobs []imageJob) {
	ctx, cancel := context.WithTimeout(context.Background(), imagesTimeout)
	defer cancel()

	for _, job := range jobs {
		if sess.Generation() != generation {
			return
		}
		image, err := resolver.Resolve(ctx, job.desc)
		if err != nil {
			log.Printf("Image for %q on board %s, using placeholder: %v", job.desc, sess.ID, err)
		}
		if !sess.SetImage(generation, job.index, image) {
			resolver.Release(image)
			return
		}
		s.events.Publish(sess.ID, cellImageEvent{
			Type:       eventCellImage,
			Index:      job.index,
			Image:      image,
			Generation: generation,
		})
	}
}

// --- Frontend page handlers ---

// GET /board/{id}: serve the board page.
func (s *Server) handleBoardPage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/board.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeReference(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxReferenceLen {
		s = string([]rune(s)[:maxReferenceLen])
	}
	return s
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
