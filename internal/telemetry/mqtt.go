package telemetry

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// EventMessage is the JSON shape published to the bench diagnostics broker
// and consumed by cmd/console and cmd/web.
type EventMessage struct {
	Kind    string  `json:"kind"` // "T" or "R"
	TimerMS int64   `json:"timer_ms"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Alt     float64 `json:"alt"`
	Valid   bool    `json:"valid"`
	RSSI    int     `json:"rssi,omitempty"`
	Payload string  `json:"payload,omitempty"`
}

func NewEventMessage(ev Event) EventMessage {
	m := EventMessage{
		Kind:    string(ev.Kind),
		TimerMS: ev.Timer,
		Lat:     ev.Fix.Latitude,
		Lon:     ev.Fix.Longitude,
		Alt:     ev.Fix.Altitude,
		Valid:   ev.Fix.Valid,
	}
	if ev.Kind == KindReceive {
		m.RSSI = ev.RSSI
		m.Payload = string(ev.Payload)
	}
	return m
}

// Publisher mirrors recorded events to an MQTT broker for bench observation.
// Strictly best-effort: a missing broker or failed publish never slows the
// scheduler, so publishes are fire-and-forget at QoS 0.
type Publisher struct {
	client     mqtt.Client
	eventTopic string
	stateTopic string
	log        zerolog.Logger
}

func NewPublisher(broker, clientID, eventTopic, stateTopic string, log zerolog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Info().Str("broker", broker).Msg("connected to diagnostics broker")

	return &Publisher{
		client:     client,
		eventTopic: eventTopic,
		stateTopic: stateTopic,
		log:        log,
	}, nil
}

// Publish is a telemetry.Observer.
func (p *Publisher) Publish(ev Event) {
	payload, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		p.log.Warn().Err(err).Msg("event marshal failed")
		return
	}
	p.client.Publish(p.eventTopic, 0, false, payload)
	// Retained latest state so late subscribers see something immediately.
	p.client.Publish(p.stateTopic, 0, true, payload)
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
