package main

import (
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"autoHunterBack/internal/models"
)

const (
	wsWriteDeadline = 5 * time.Second
	wsReadLimit     = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// MonitorHub fans scraper log entries out to connected dashboard sockets.
// All access to clients happens in Run.
type MonitorHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan models.ScraperLogEntry
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func NewMonitorHub() *MonitorHub {
	return &MonitorHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan models.ScraperLogEntry, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Publish queues an entry for delivery, dropping it if the hub is backed up.
func (h *MonitorHub) Publish(entry models.ScraperLogEntry) {
	select {
	case h.broadcast <- entry:
	default:
	}
}

func (h *MonitorHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				conn.Close()
				delete(h.clients, conn)
			}

		case entry := <-h.broadcast:
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if err := conn.WriteJSON(entry); err != nil {
					log.Printf("monitor ws write: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
		}
	}
}

// serveMonitorWS upgrades a dashboard connection to the live scraper feed.
// Browsers can't set headers on websocket dials, so the shared secret rides
// the query string.
func (app *application) serveMonitorWS(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	expected := app.cfg.Internal.APISecret
	if expected == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(expected)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.errorLog.Printf("monitor ws upgrade: %v", err)
		return
	}
	app.monitor.register <- conn

	// Reader loop exists only to notice the peer going away.
	go func() {
		conn.SetReadLimit(wsReadLimit)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				app.monitor.unregister <- conn
				return
			}
		}
	}()
}
