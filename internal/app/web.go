package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/beacon_tracker/internal/config"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

// RunWeb serves a small status page on the bench network: latest event as
// JSON, plus a websocket that streams every event relayed by the broker.
func RunWeb() error {
	cfg := config.Get()
	log := logging.Component("web")

	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER must be set for the web status page")
	}

	var (
		mu        sync.RWMutex
		lastEvent telemetry.EventMessage
		haveEvent bool
		clients   = map[*websocket.Conn]bool{}
	)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-web")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("broker", cfg.MQTTBroker).Msg("connected")

	token := client.Subscribe(cfg.TopicEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev telemetry.EventMessage
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Warn().Err(err).Msg("event unmarshal error")
			return
		}

		mu.Lock()
		lastEvent = ev
		haveEvent = true
		for conn := range clients {
			if err := conn.WriteJSON(ev); err != nil {
				conn.Close()
				delete(clients, conn)
			}
		}
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", cfg.TopicEvents).Msg("subscribed")

	upgrader := websocket.Upgrader{
		// Bench-local page; same-origin enforcement is not useful here.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveEvent {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastEvent); err != nil {
			log.Warn().Err(err).Msg("json encode error")
		}
	})

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		mu.Lock()
		clients[conn] = true
		if haveEvent {
			if err := conn.WriteJSON(lastEvent); err != nil {
				conn.Close()
				delete(clients, conn)
			}
		}
		mu.Unlock()
	})

	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Info().Str("addr", addr).Msg("web server listening")
	return http.ListenAndServe(addr, nil)
}
