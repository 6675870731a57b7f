package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/beacon_tracker/internal/app"
	"github.com/relabs-tech/beacon_tracker/internal/config"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
)

func main() {
	configPath := flag.String("config", "tracker.conf", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	cfg := config.Get()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := app.RunWeb(); err != nil {
		log.Fatal().Err(err).Msg("web exited")
	}
}
