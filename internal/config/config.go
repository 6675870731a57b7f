package config

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds the hardware wiring and sink settings for one tracker unit.
// Radio link parameters are deliberately absent: they are compile-time
// constants in internal/radio, never runtime-tunable, so two units cannot
// drift apart by misconfiguration.
type Config struct {
	// GPS receiver UART
	GPSSerialPort string
	GPSBaudRate   int

	// SX1262 wiring
	RadioSPIDevice string
	RadioResetPin  string
	RadioBusyPin   string
	RadioDIO1Pin   string

	// Receive indicator LED
	IndicatorPin string

	// Event sinks
	EventLogPath   string // append-only text log, required
	EventDBPath    string // sqlite history, empty disables
	SerialSinkPort string // interactive serial console, empty means stdout
	SerialSinkBaud int

	// Bench diagnostics (optional)
	MQTTBroker   string
	MQTTClientID string
	TopicEvents  string
	TopicState   string

	// Status display (optional)
	DisplayEnabled        bool
	DisplayUpdateInterval int // milliseconds

	// Web status page (cmd/web)
	WebServerPort int

	// Diagnostic logging
	LogLevel  string
	LogFormat string
}

// Package-level unexported variables for the singleton:
//   - globalConfig is unexported so other packages cannot modify it directly.
//   - configOnce ensures InitGlobal only runs once.
//   - configMu protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the KEY=VALUE configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaults()
	for key, value := range values {
		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		GPSBaudRate:           9600,
		SerialSinkBaud:        115200,
		MQTTClientID:          "beacon-tracker",
		TopicEvents:           "tracker/events",
		TopicState:            "tracker/state",
		DisplayUpdateInterval: 500,
		WebServerPort:         8080,
		LogLevel:              "info",
		LogFormat:             "console",
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	case "RADIO_SPI_DEVICE":
		c.RadioSPIDevice = value
	case "RADIO_RESET_PIN":
		c.RadioResetPin = value
	case "RADIO_BUSY_PIN":
		c.RadioBusyPin = value
	case "RADIO_DIO1_PIN":
		c.RadioDIO1Pin = value

	case "INDICATOR_PIN":
		c.IndicatorPin = value

	case "EVENT_LOG_PATH":
		c.EventLogPath = value
	case "EVENT_DB_PATH":
		c.EventDBPath = value
	case "SERIAL_SINK_PORT":
		c.SerialSinkPort = value
	case "SERIAL_SINK_BAUD":
		baud, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_SINK_BAUD %q: %w", value, err)
		}
		c.SerialSinkBaud = baud

	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_EVENTS":
		c.TopicEvents = value
	case "TOPIC_STATE":
		c.TopicState = value

	case "DISPLAY_ENABLED":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
		c.DisplayEnabled = enabled
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", interval)
		}
		c.DisplayUpdateInterval = interval

	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		c.LogFormat = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive")
	}
	if c.RadioSPIDevice == "" {
		return fmt.Errorf("RADIO_SPI_DEVICE is required")
	}
	if c.RadioResetPin == "" || c.RadioBusyPin == "" || c.RadioDIO1Pin == "" {
		return fmt.Errorf("RADIO_RESET_PIN, RADIO_BUSY_PIN and RADIO_DIO1_PIN are required")
	}
	if c.IndicatorPin == "" {
		return fmt.Errorf("INDICATOR_PIN is required")
	}
	if c.EventLogPath == "" {
		return fmt.Errorf("EVENT_LOG_PATH is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Safe to call
// more than once; only the first call loads.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be called
// first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
