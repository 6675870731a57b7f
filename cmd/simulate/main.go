package main

import (
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/beacon_tracker/internal/app"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "how long to run the simulation")
	offset := flag.Duration("offset", 500*time.Millisecond, "stagger between unit power-on")
	level := flag.String("log-level", "info", "diagnostic log level")
	flag.Parse()

	logging.Setup(*level, "console")

	if err := app.RunSimulate(*duration, *offset); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}
