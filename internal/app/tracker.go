// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	serial "github.com/jacobsa/go-serial/serial"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/beacon_tracker/internal/beacon"
	"github.com/relabs-tech/beacon_tracker/internal/clock"
	"github.com/relabs-tech/beacon_tracker/internal/config"
	"github.com/relabs-tech/beacon_tracker/internal/gps"
	"github.com/relabs-tech/beacon_tracker/internal/indicator"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
	"github.com/relabs-tech/beacon_tracker/internal/radio"
	"github.com/relabs-tech/beacon_tracker/internal/store"
	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

// RunTracker wires the full firmware: GPS provider, SX1262 radio, beacon
// scheduler, event sinks, indicator LED and the optional display and MQTT
// diagnostics. It blocks until SIGINT/SIGTERM.
func RunTracker() error {
	cfg := config.Get()
	log := logging.Component("tracker")

	bootClock := clock.NewMonotonic()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	// ---- GPS serial port ----
	gpsPort, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.GPSSerialPort,
		BaudRate:        uint(cfg.GPSBaudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return fmt.Errorf("open GPS serial port %s: %w", cfg.GPSSerialPort, err)
	}
	defer gpsPort.Close()
	log.Info().Str("port", cfg.GPSSerialPort).Int("baud", cfg.GPSBaudRate).Msg("GPS serial port open")

	provider := gps.NewProvider(bootClock, logging.Component("gps"))

	// ---- SX1262 over SPI ----
	spiPort, err := spireg.Open(cfg.RadioSPIDevice)
	if err != nil {
		return fmt.Errorf("open SPI %s: %w", cfg.RadioSPIDevice, err)
	}
	defer spiPort.Close()

	spiConn, err := spiPort.Connect(8*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return fmt.Errorf("SPI connect: %w", err)
	}

	resetPin := gpioreg.ByName(cfg.RadioResetPin)
	busyPin := gpioreg.ByName(cfg.RadioBusyPin)
	dio1Pin := gpioreg.ByName(cfg.RadioDIO1Pin)
	if resetPin == nil || busyPin == nil || dio1Pin == nil {
		return fmt.Errorf("radio control pins not found: reset=%q busy=%q dio1=%q",
			cfg.RadioResetPin, cfg.RadioBusyPin, cfg.RadioDIO1Pin)
	}

	drv := radio.NewSX1262(spiConn, resetPin, busyPin, dio1Pin, logging.Component("radio"))

	// ---- Indicator LED ----
	ledPin := gpioreg.ByName(cfg.IndicatorPin)
	if ledPin == nil {
		return fmt.Errorf("indicator pin %q not found", cfg.IndicatorPin)
	}
	led := indicator.NewLED(ledPin)
	defer led.Off()

	// ---- Event sinks ----
	fileStore, err := store.OpenFile(cfg.EventLogPath)
	if err != nil {
		return err
	}
	defer fileStore.Close()

	stores := []telemetry.Store{fileStore}
	if cfg.EventDBPath != "" {
		dbStore, err := store.OpenSQLite(cfg.EventDBPath)
		if err != nil {
			// History db is a convenience; the text log is the record.
			log.Warn().Err(err).Msg("event db unavailable, continuing without")
		} else {
			defer dbStore.Close()
			stores = append(stores, dbStore)
		}
	}

	serialSink, closeSink, err := openSerialSink(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("serial sink unavailable, falling back to stdout")
		serialSink = os.Stdout
	}
	if closeSink != nil {
		defer closeSink()
	}

	eventLog := telemetry.NewLogger(serialSink, logging.Component("events"), stores...)

	if cfg.MQTTBroker != "" {
		pub, err := telemetry.NewPublisher(cfg.MQTTBroker, cfg.MQTTClientID,
			cfg.TopicEvents, cfg.TopicState, logging.Component("mqtt"))
		if err != nil {
			log.Warn().Err(err).Msg("diagnostics broker unavailable, continuing without")
		} else {
			defer pub.Close()
			eventLog.Observe(pub.Publish)
		}
	}

	// ---- Scheduler ----
	sched := beacon.NewScheduler(bootClock, drv, provider, eventLog, led, logging.Component("scheduler"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DisplayEnabled {
		go runDisplay(ctx, cfg, provider, sched)
	}

	go func() {
		if err := provider.Run(ctx, gpsPort); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("GPS stream ended")
		}
	}()

	log.Info().Msg("tracker running")
	err = sched.Run(ctx)
	if ctx.Err() != nil {
		log.Info().Msg("tracker stopping")
		return nil
	}
	return err
}

// openSerialSink opens the interactive console sink. An empty port name means
// stdout, which is what bench setups use.
func openSerialSink(cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.SerialSinkPort == "" {
		return os.Stdout, nil, nil
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.SerialSinkPort,
		BaudRate:        uint(cfg.SerialSinkBaud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open serial sink %s: %w", cfg.SerialSinkPort, err)
	}
	return port, port.Close, nil
}
