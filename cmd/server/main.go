package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/jindalujjwal0720/milan/internal/config"
	"github.com/jindalujjwal0720/milan/internal/logging"
	"github.com/jindalujjwal0720/milan/internal/server"
	"github.com/jindalujjwal0720/milan/internal/signaling"
	"github.com/jindalujjwal0720/milan/internal/turnserver"
)

func main() {
	logging.Init()

	var opts config.ServerOptions
	flag.StringVar(&opts.ListenAddr, "listen", "", "HTTP listen address")
	flag.StringVar(&opts.AllowedOrigin, "origin", "", "allowed browser origin (empty allows all)")
	flag.StringVar(&opts.TURNListen, "turn-listen", "", "TURN relay UDP listen address (empty disables the relay)")
	flag.StringVar(&opts.TURNPublicIP, "turn-public-ip", "", "public IP the TURN relay advertises")
	flag.StringVar(&opts.TURNRealm, "turn-realm", "", "TURN realm")
	flag.StringVar(&opts.TURNUser, "turn-user", "", "TURN username")
	flag.StringVar(&opts.TURNPass, "turn-pass", "", "TURN password")
	flag.Parse()

	cfg := config.LoadServer(opts)

	if cfg.TURNListen != "" {
		relay, err := turnserver.Start(cfg)
		if err != nil {
			slog.Error("failed to start TURN relay", "err", err)
			os.Exit(1)
		}
		defer relay.Close()
	}

	hub := signaling.NewHub()
	mux := server.Routes(hub, cfg.AllowedOrigin)

	slog.Info("coordinator listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
