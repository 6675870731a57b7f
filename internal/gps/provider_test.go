package gps

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/beacon_tracker/internal/clock"
)

const (
	sentenceRMC      = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	sentenceRMCVoid  = "$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D"
	sentenceGGA      = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	sentenceGGANoFix = "$GPGGA,123519,4807.038,N,01131.000,E,0,08,0.9,545.4,M,46.9,M,,*46"
)

func feed(t *testing.T, p *Provider, lines ...string) {
	t.Helper()
	r := strings.NewReader(strings.Join(lines, "\r\n") + "\r\n")
	if err := p.Run(context.Background(), r); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-6
}

func TestLatestBeforeAnySentence(t *testing.T) {
	p := NewProvider(clock.NewManual(), zerolog.Nop())
	fix := p.Latest()
	if fix.Valid {
		t.Fatal("zero fix reports Valid")
	}
}

func TestRMCSetsPosition(t *testing.T) {
	clk := clock.NewManual()
	clk.Set(250)
	p := NewProvider(clk, zerolog.Nop())

	feed(t, p, sentenceRMC)

	fix := p.Latest()
	if !fix.Valid {
		t.Fatal("fix not valid after active RMC")
	}
	if !closeTo(fix.Latitude, 48.1173) {
		t.Errorf("latitude %v, want 48.1173", fix.Latitude)
	}
	if !closeTo(fix.Longitude, 11.5166667) {
		t.Errorf("longitude %v, want 11.5166667", fix.Longitude)
	}
	if fix.ObservedAt != 250 {
		t.Errorf("ObservedAt %d, want 250", fix.ObservedAt)
	}
}

func TestGGAMergesAltitude(t *testing.T) {
	p := NewProvider(clock.NewManual(), zerolog.Nop())

	feed(t, p, sentenceRMC, sentenceGGA)

	fix := p.Latest()
	if !fix.Valid {
		t.Fatal("fix not valid")
	}
	if !closeTo(fix.Altitude, 545.4) {
		t.Errorf("altitude %v, want 545.4", fix.Altitude)
	}
	if !closeTo(fix.Latitude, 48.1173) {
		t.Errorf("GGA clobbered latitude: %v", fix.Latitude)
	}
}

func TestVoidRMCOnlyClearsValidity(t *testing.T) {
	p := NewProvider(clock.NewManual(), zerolog.Nop())

	feed(t, p, sentenceRMC, sentenceGGA, sentenceRMCVoid)

	fix := p.Latest()
	if fix.Valid {
		t.Fatal("fix stayed valid after receiver reported Void")
	}
	// Last known coordinates are kept for reference.
	if !closeTo(fix.Latitude, 48.1173) || !closeTo(fix.Altitude, 545.4) {
		t.Errorf("void RMC wiped coordinates: %+v", fix)
	}
}

func TestInvalidQualityGGAIgnored(t *testing.T) {
	p := NewProvider(clock.NewManual(), zerolog.Nop())

	feed(t, p, sentenceRMC, sentenceGGANoFix)

	fix := p.Latest()
	if fix.Altitude != 0 {
		t.Errorf("altitude %v taken from a no-fix GGA", fix.Altitude)
	}
	if !fix.Valid {
		t.Error("no-fix GGA disturbed RMC validity")
	}
}

func TestGarbageLeavesFixUntouched(t *testing.T) {
	p := NewProvider(clock.NewManual(), zerolog.Nop())

	feed(t, p,
		sentenceRMC,
		"",
		"not nmea at all",
		"$GPRMC,truncated",
		// Valid shape, corrupted checksum.
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00",
	)

	fix := p.Latest()
	if !fix.Valid || !closeTo(fix.Latitude, 48.1173) {
		t.Errorf("garbage lines disturbed the stored fix: %+v", fix)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	p := NewProvider(clock.NewManual(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := strings.NewReader(sentenceRMC + "\r\n" + sentenceGGA + "\r\n")
	if err := p.Run(ctx, r); err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}
