// Command ipcserver runs a demo server exercising the handshake, Execute,
// Request/Reply, Poke, and StartAdvise/StopAdvise (subscriptions are
// recorded; no Advise frames are pushed), plus a small admin HTTP surface
// for health and stats.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/nilquartz/ipcwire"
)

type echoHandler struct {
	ipcwire.NopHandler

	mu        sync.Mutex
	subscribe map[string]bool
}

func newEchoHandler() *echoHandler {
	return &echoHandler{subscribe: make(map[string]bool)}
}

func (h *echoHandler) OnExecute(topic string, data []byte, format ipcwire.Format) {
	slog.Info("execute", "topic", topic, "format", format, "bytes", len(data))
}

func (h *echoHandler) OnRequest(topic, item string, format ipcwire.Format) ([]byte, int) {
	reply := []byte("OK: " + item)
	return reply, len(reply)
}

func (h *echoHandler) OnPoke(topic, item string, data []byte, format ipcwire.Format) {
	slog.Info("poke", "topic", topic, "item", item, "bytes", len(data))
}

func (h *echoHandler) OnStartAdvise(topic, item string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribe[item] = true
	return true
}

func (h *echoHandler) OnStopAdvise(topic, item string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribe, item)
	return true
}

type serverHandler struct {
	stats *ipcwire.Stats
	cfg   ipcwire.Config
}

func (s *serverHandler) OnAcceptConnection(topic string) ipcwire.Handler {
	if topic != s.cfg.Topic {
		return nil
	}
	return ipcwire.NewStatsHandler(newEchoHandler(), s.stats)
}

func adminRouter(stats *ipcwire.Stats) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Snapshot())
	})
	return r
}

// newLogger builds the Logger cmd/ipcserver's connections should use. A
// zerolog-backed logger is opt-in via -log-format, for deployments that
// already standardize on zerolog elsewhere; the default stays the
// package's slog-backed Logger.
func newLogger(format string, pretty bool) ipcwire.Logger {
	if format == "zerolog" {
		return ipcwire.NewZerologLogger(os.Stderr, pretty)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	logFormat := flag.String("log-format", "slog", "connection logger: slog or zerolog")
	logPretty := flag.Bool("log-pretty", false, "colorize zerolog output (only with -log-format=zerolog)")
	flag.Parse()

	cfg := ipcwire.DefaultConfig()
	if *configPath != "" {
		loaded, err := ipcwire.LoadConfig(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	stats := &ipcwire.Stats{}
	sh := &serverHandler{stats: stats, cfg: cfg}

	connOpts := append(cfg.ConnOptions(), ipcwire.WithFaultHandler(func(error) { stats.RecordFault() }))
	if l := newLogger(*logFormat, *logPretty); l != nil {
		connOpts = append(connOpts, ipcwire.WithLogger(l))
	}

	srv, err := ipcwire.NewServer(cfg.Host, cfg.Port, sh,
		ipcwire.WithServerConnOptions(connOpts...),
		ipcwire.WithServerStats(stats),
	)
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	go func() {
		admin := &http.Server{Addr: cfg.AdminAddr, Handler: adminRouter(stats)}
		slog.Info("admin listening", "addr", cfg.AdminAddr)
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("admin server error", "error", err)
		}
	}()

	slog.Info("server listening", "addr", srv.Addr())
	if err := srv.Serve(ctx); err != nil {
		slog.Error("server error", "error", err)
	}
}
