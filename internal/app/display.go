package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/beacon_tracker/internal/beacon"
	"github.com/relabs-tech/beacon_tracker/internal/config"
	"github.com/relabs-tech/beacon_tracker/internal/gps"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
)

// runDisplay drives the optional SSD1306 status display: fix state, beacon
// counters and the last measured RSSI. Display trouble is never fatal to the
// beacon cadence.
func runDisplay(ctx context.Context, cfg *config.Config, fixes beacon.FixSource, sched *beacon.Scheduler) {
	log := logging.Component("display")

	bus, err := i2creg.Open("")
	if err != nil {
		log.Warn().Err(err).Msg("I2C bus unavailable, display disabled")
		return
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		log.Warn().Err(err).Msg("display init failed, display disabled")
		return
	}
	log.Info().Msg("status display initialized")

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := drawStatus(dev, fixes.Latest(), sched); err != nil {
			log.Warn().Err(err).Msg("display update failed")
		}
	}
}

func drawStatus(dev *ssd1306.Dev, fix gps.Fix, sched *beacon.Scheduler) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte("BEACON TRACKER"))

	if fix.Valid {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte(fmt.Sprintf("%9.5f", fix.Latitude)))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("%9.5f", fix.Longitude)))
	} else {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("NO FIX"))
	}

	tx, rx, rssi := sched.Stats()
	drawer.Dot = fixed.P(0, 52)
	if rx > 0 {
		drawer.DrawBytes([]byte(fmt.Sprintf("T%d R%d %ddBm", tx, rx, rssi)))
	} else {
		drawer.DrawBytes([]byte(fmt.Sprintf("T%d R%d", tx, rx)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
