// Command ipcclient dials a running ipcserver, performs the handshake, and
// exercises Execute, Request, Poke, and an Advise subscription before
// disconnecting.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/nilquartz/ipcwire"
)

type clientHandler struct {
	ipcwire.NopHandler
}

func (clientHandler) OnAdvise(topic, item string, data []byte, format ipcwire.Format) {
	slog.Info("advise", "topic", topic, "item", item, "bytes", len(data))
}

// newLogger mirrors cmd/ipcserver's -log-format switch: zerolog is opt-in,
// the slog default otherwise.
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

	connOpts := cfg.ConnOptions()
	if l := newLogger(*logFormat, *logPretty); l != nil {
		connOpts = append(connOpts, ipcwire.WithLogger(l))
	}

	conn, err := ipcwire.MakeConnection(cfg.Host, cfg.Port, cfg.Topic,
		func() ipcwire.Handler { return clientHandler{} },
		connOpts...,
	)
	if err != nil {
		slog.Error("handshake failed", "error", err)
		os.Exit(1)
	}
	defer conn.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := conn.Run(ctx); err != nil {
			slog.Error("connection ended", "error", err)
		}
	}()

	if err := conn.Execute([]byte("Date\x00"), ipcwire.FormatText); err != nil {
		slog.Error("Execute failed", "error", err)
	}

	reply, err := conn.Request("ping", ipcwire.FormatPrivate)
	if err != nil {
		slog.Error("Request failed", "error", err)
	} else {
		slog.Info("Request reply", "data", string(reply))
	}

	if err := conn.Poke("ticker", []byte("tick"), ipcwire.FormatPrivate); err != nil {
		slog.Error("Poke failed", "error", err)
	}

	if ok, err := conn.StartAdvise("ticker"); err != nil || !ok {
		slog.Error("StartAdvise failed", "ok", ok, "error", err)
	}

	time.Sleep(2 * time.Second)

	if ok, err := conn.StopAdvise("ticker"); err != nil || !ok {
		slog.Error("StopAdvise failed", "ok", ok, "error", err)
	}
}
