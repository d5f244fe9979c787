package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductAPI/internal/catalog"
	"ProductAPI/internal/config"
	"ProductAPI/pkg/kit"
)

const service = "productapi"

func main() {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.MetricsEnabled && cfg.MetricsToken == "" {
		log.Warn("METRICS_TOKEN is empty, /metrics will reject every request")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &catalog.Server{
		Store:  catalog.NewMemStore(catalog.SeedProducts()...),
		Log:    log,
		APIKey: cfg.APIKey,
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	opts := kit.ServerOptions{
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	if err := kit.RunHTTPServer(opts, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
	log.Info("server stopped")
}
