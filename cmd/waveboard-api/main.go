package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/waveboard-dev/waveboard/internal/router"
	"github.com/waveboard-dev/waveboard/internal/setup"
	"github.com/waveboard-dev/waveboard/shared/config"
	"github.com/waveboard-dev/waveboard/shared/logger"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	deps, err := setup.SetupDependencies(cfg)
	if err != nil {
		logger.Log.Error("failed to initialize dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Storage.Cleanup()

	r := router.New(deps)

	server := &http.Server{
		Addr:         cfg.Public.ListenAddr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	logger.Log.Info("starting api", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		logger.Log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
