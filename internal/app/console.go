package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/beacon_tracker/internal/config"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

// RunConsole subscribes to the tracker's diagnostics broker and prints each
// beacon event as it happens. Bench tool; the firmware does not need it.
func RunConsole() error {
	cfg := config.Get()
	log := logging.Component("console")

	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER must be set for the console")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("connected")

	token := client.Subscribe(cfg.TopicEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev telemetry.EventMessage
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Warn().Err(err).Msg("event unmarshal error")
			return
		}

		pos := "no fix"
		if ev.Valid {
			pos = fmt.Sprintf("%.5f,%.5f alt=%.0fm", ev.Lat, ev.Lon, ev.Alt)
		}

		switch ev.Kind {
		case "T":
			fmt.Printf("[TX] t=%-8d %s\n", ev.TimerMS, pos)
		case "R":
			fmt.Printf("[RX] t=%-8d %s rssi=%ddBm payload=%q\n", ev.TimerMS, pos, ev.RSSI, ev.Payload)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", cfg.TopicEvents).Msg("subscribed")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
