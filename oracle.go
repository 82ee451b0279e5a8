// Oracle
//
// Players type a list of questions and a list of names. Pressing "decide"
// pairs a random question with a random person and shows it in a dialog over
// a falling-rune backdrop. Accepting removes the question and shows the answer
// screen; declining thanks the player and collapses the dialog.
//
// Features:
// - One table per browser, keyed by the oracle_id cookie; nothing is shared
//   between players
// - All game logic runs server-side, the page only renders what the hub sends
// - WebSocket per table at /path/ws; every tab of the same browser mirrors it
// - Raw question and name texts persisted to SQLite on every edit
// - Rune frames generated by the server and painted by the browser on a canvas
// - Tables auto-reaped after the configurable idle timeout
// - QR button to open the game on another device, backed by go-qrcode

package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Seednode/oracle/rng"
	"github.com/Seednode/oracle/runes"
	"github.com/Seednode/oracle/store"
	"github.com/Seednode/oracle/table"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageBytes = 64 << 10
)

// Messages coming from clients
type ClientMessage struct {
	Type   string  `json:"type"`             // "questions", "people", "decide", "accept", "decline", "dismiss", "answered", "resize"
	Text   string  `json:"text,omitempty"`   // questions / people
	Width  float64 `json:"width,omitempty"`  // resize, CSS pixels
	Height float64 `json:"height,omitempty"` // resize, CSS pixels
	DPR    float64 `json:"dpr,omitempty"`    // resize
}

// TextsMessage replaces the contents of both text fields.
type TextsMessage struct {
	Type      string `json:"type"` // "texts"
	Questions string `json:"questions"`
	People    string `json:"people"`
}

// StatusMessage sets the form status line; an empty message clears it.
type StatusMessage struct {
	Type    string `json:"type"` // "status"
	Message string `json:"message"`
}

type DecideStateMessage struct {
	Type    string `json:"type"` // "decide_state"
	Enabled bool   `json:"enabled"`
}

// AssignmentMessage opens the dialog with a freshly drawn pair.
type AssignmentMessage struct {
	Type string     `json:"type"` // "assignment"
	Card table.Card `json:"card"`
}

// SimpleMessage is for the dialog transitions ("answer", "selfcare",
// "collapse", "hide", "runes_clear").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type RunesMessage struct {
	Type  string      `json:"type"` // "runes"
	Frame runes.Frame `json:"frame"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

// Hub owns one player's table. Every table event runs on the hub goroutine;
// the rune engine draws from its own goroutine through Size/Draw/Clear.
type Hub struct {
	id string

	mu         sync.RWMutex
	clients    map[*Client]bool
	width      float64
	height     float64
	dpr        float64
	lastActive time.Time

	register chan *Client
	unreg    chan *Client
	events   chan func()
	quit     chan struct{}
	stopOnce sync.Once

	table *table.Table
	runes *runes.Engine
}

func newHub(cfg *Config, playerID string, db *store.DB) *Hub {
	h := &Hub{
		id:         playerID,
		clients:    make(map[*Client]bool),
		dpr:        1,
		lastActive: time.Now(),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		events:     make(chan func(), 16),
		quit:       make(chan struct{}),
	}

	seed := rng.DefaultSeed(time.Now())
	logger := cfg.log().With(zap.String("table", playerID))

	h.runes = runes.New(h, rng.FromSeed(seed+" runes"), runes.WithLogger(logger))

	var storage table.Storage
	if db != nil {
		storage = db
	}

	h.table = table.New(table.Config{
		Owner:     playerID,
		View:      h,
		Storage:   storage,
		Animation: h.runes,
		RNG:       rng.FromSeed(seed),
		Post:      h.post,
		Logger:    logger,
	})

	return h
}

func (h *Hub) run(cfg *Config) {
	h.table.Load(context.Background())

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.mu.Unlock()

			h.table.Sync()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()

			// Nobody is left to see the dialog.
			if remaining == 0 {
				h.table.Dismiss()
			}

		case f := <-h.events:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.mu.Unlock()

			f()

		case <-h.quit:
			h.table.Close()
			logf(cfg, "TABLES: Closed table %s", h.id)

			return
		}
	}
}

// post queues f to run on the hub goroutine. It is dropped once the hub has
// stopped.
func (h *Hub) post(f func()) {
	select {
	case h.events <- f:
	case <-h.quit:
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

// closeAll stops the hub and disconnects all of its clients (used by reaper).
func (h *Hub) closeAll() {
	h.stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) idleSince() (time.Time, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive, len(h.clients)
}

// maxExtent is the largest surface side, in CSS pixels, a client may report.
const (
	maxExtent = 16384
	maxDPR    = 8
)

func validExtent(v float64) bool {
	return v >= 0 && v <= maxExtent
}

// broadcast sends msg to every client. Clients that cannot keep up are
// dropped, unless droppable is set, in which case only the message is.
func (h *Hub) broadcast(msg any, droppable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			if droppable {
				continue
			}
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) resize(width, height, dpr float64) {
	if !validExtent(width) || !validExtent(height) {
		return
	}
	if !(dpr > 0 && dpr <= maxDPR) {
		dpr = 1
	}

	h.mu.Lock()
	h.width, h.height, h.dpr = width, height, dpr
	h.mu.Unlock()
}

// table.View

func (h *Hub) SetTexts(questions, people string) {
	h.broadcast(TextsMessage{Type: "texts", Questions: questions, People: people}, false)
}

func (h *Hub) SetStatus(msg string) {
	h.broadcast(StatusMessage{Type: "status", Message: msg}, false)
}

func (h *Hub) SetDecideEnabled(enabled bool) {
	h.broadcast(DecideStateMessage{Type: "decide_state", Enabled: enabled}, false)
}

func (h *Hub) ShowAssignment(card table.Card) {
	h.broadcast(AssignmentMessage{Type: "assignment", Card: card}, false)
}

func (h *Hub) ShowAnswer() {
	h.broadcast(SimpleMessage{Type: "answer"}, false)
}

func (h *Hub) ShowSelfCare(text string) {
	h.broadcast(SimpleMessage{Type: "selfcare", Message: text}, false)
}

func (h *Hub) Collapse() {
	h.broadcast(SimpleMessage{Type: "collapse"}, false)
}

func (h *Hub) HideModal() {
	h.broadcast(SimpleMessage{Type: "hide"}, false)
}

// runes.Surface

func (h *Hub) Size() (float64, float64, float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.width, h.height, h.dpr
}

func (h *Hub) Draw(frame runes.Frame) error {
	h.broadcast(RunesMessage{Type: "runes", Frame: frame}, true)

	return nil
}

func (h *Hub) Clear() error {
	h.broadcast(SimpleMessage{Type: "runes_clear"}, false)

	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "oracle_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id.String()
}

// TableManager holds one hub per player ID.
type TableManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	db          *store.DB
	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

func newTableManager(db *store.DB, idleTimeout time.Duration) *TableManager {
	tm := &TableManager{
		hubs:        make(map[string]*Hub),
		db:          db,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go tm.reaperLoop()
	}
	return tm
}

func (tm *TableManager) getHub(cfg *Config, playerID string) *Hub {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if hub, ok := tm.hubs[playerID]; ok {
		return hub
	}

	hub := newHub(cfg, playerID, tm.db)
	tm.hubs[playerID] = hub
	go hub.run(cfg)

	logf(cfg, "TABLES: Opened table %s", playerID)

	return hub
}

func (tm *TableManager) count() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	return len(tm.hubs)
}

// reap removes hubs without clients that have been idle since before cutoff.
func (tm *TableManager) reap(cutoff time.Time) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for id, hub := range tm.hubs {
		last, clients := hub.idleSince()
		if clients == 0 && last.Before(cutoff) {
			delete(tm.hubs, id)
			go hub.closeAll()
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (tm *TableManager) reaperLoop() {
	ticker := time.NewTicker(tm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tm.reap(time.Now().Add(-tm.idleTimeout))
		case <-tm.done:
			return
		}
	}
}

func (tm *TableManager) close() {
	tm.closeOnce.Do(func() {
		close(tm.done)

		tm.mu.Lock()
		defer tm.mu.Unlock()

		for id, hub := range tm.hubs {
			delete(tm.hubs, id)
			hub.closeAll()
		}
	})
}

// WebSocket handler that picks the hub based on the player cookie
func serveWSForManager(cfg *Config, tm *TableManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := tm.getHub(cfg, playerID)

		// The upgrade writes its own response; carry the cookie over.
		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			cfg.log().Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "questions":
			text := msg.Text
			h.post(func() { h.table.QuestionsChanged(ctx, text) })
		case "people":
			text := msg.Text
			h.post(func() { h.table.PeopleChanged(ctx, text) })
		case "decide":
			h.post(h.table.Decide)
		case "accept":
			h.post(func() { h.table.Accept(ctx) })
		case "decline":
			h.post(h.table.Decline)
		case "dismiss":
			h.post(h.table.Dismiss)
		case "answered":
			h.post(h.table.Answered)
		case "resize":
			h.resize(msg.Width, msg.Height, msg.DPR)
			h.post(func() {
				if h.runes.Running() {
					h.runes.Start()
				}
			})
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// QR handler: generates a PNG QR code pointing at the game page.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func serveOracle(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := readPage(cfg, "assets/oracle/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// registerOracle sets up routes so that:
//   - $path       → HTML client
//   - $path/ws    → WebSocket for the caller's table
//   - $path/qr    → PNG QR code for the game URL
//
// The returned function closes every open table.
func registerOracle(cfg *Config, path string, mux *httprouter.Router, db *store.DB, errs chan<- error) func() {
	tm := newTableManager(db, cfg.sessionTimeout)

	mux.Handler("GET", cfg.prefix+path, compressed(serveOracle(cfg, errs)))

	mux.GET(cfg.prefix+path+"/ws", serveWSForManager(cfg, tm))

	mux.GET(cfg.prefix+path+"/qr", qrHandler(cfg))

	return tm.close
}
