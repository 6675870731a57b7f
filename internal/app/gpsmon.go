package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/beacon_tracker/internal/clock"
	"github.com/relabs-tech/beacon_tracker/internal/config"
	"github.com/relabs-tech/beacon_tracker/internal/gps"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
)

// RunGPSMonitor opens the configured GPS port and prints the parsed fix once
// a second. Bench tool for antenna placement and receiver checkout.
func RunGPSMonitor() error {
	cfg := config.Get()
	log := logging.Component("gpsmon")

	port, err := serial.Open(serial.OpenOptions{
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
	defer port.Close()
	log.Info().Str("port", cfg.GPSSerialPort).Int("baud", cfg.GPSBaudRate).Msg("GPS serial port open")

	clk := clock.NewMonotonic()
	provider := gps.NewProvider(clk, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := provider.Run(ctx, port); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("GPS stream ended")
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		fix := provider.Latest()
		if !fix.Valid {
			fmt.Println("no fix")
			continue
		}
		fmt.Printf("lat=%.5f lon=%.5f alt=%.1fm age=%dms\n",
			fix.Latitude, fix.Longitude, fix.Altitude, clk.Millis()-fix.ObservedAt)
	}
}
