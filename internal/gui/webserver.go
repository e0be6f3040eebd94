// Package gui serves the annotation interface: a browser UI for stepping
// through training items, assigning class labels, and exporting the label
// array back into the dataset store.
package gui

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/saber-data/saber/internal/db"
	"github.com/saber-data/saber/internal/training"
)

//go:embed annotate.html
var annotateHTML embed.FS

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// WebServer handles the HTTP interface for the annotation tool.
type WebServer struct {
	address string
	dataset *training.Dataset
	db      *db.DB
	session *db.Session
	server  *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Dataset *training.Dataset
	DB      *db.DB
	Session *db.Session
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		dataset: config.Dataset,
		db:      config.DB,
		session: config.Session,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: LoggingMiddleware(ws.setupRoutes()),
	}
	return ws
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ws.handleIndex)
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/items", ws.handleItems)
	mux.HandleFunc("/api/item/image.png", ws.handleItemImage)
	mux.HandleFunc("/api/item/labels", ws.handleItemLabels)
	mux.HandleFunc("/api/progress", ws.handleProgress)
	mux.HandleFunc("/api/export", ws.handleExport)
	mux.HandleFunc("/charts/classes", ws.handleClassChart)
	mux.HandleFunc("/charts/areas", ws.handleAreaChart)

	return mux
}

// Start begins the HTTP server and blocks until the context is canceled,
// then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting annotation server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down annotation server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

// Close shuts down the web server.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"service":   "annotate",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleIndex serves the annotation page.
func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	tmpl, err := template.ParseFS(annotateHTML, "annotate.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		SessionID  string
		ZarrPath   string
		NumItems   int
		ClassNames []string
	}{
		SessionID:  ws.session.ID,
		ZarrPath:   ws.dataset.Dir,
		NumItems:   ws.dataset.NumItems,
		ClassNames: ws.dataset.ClassNames,
	}
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}
