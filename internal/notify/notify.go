// Package notify hands the upcoming prayer to an external notifier. It does
// not schedule anything itself; consumers arm their own alerts from the
// published descriptor.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// Descriptor is the payload a notifier needs to arm one alert.
type Descriptor struct {
	ID       string      `json:"id"`
	Prayer   prayer.Name `json:"prayer"`
	Time     time.Time   `json:"time"`
	NotifyAt time.Time   `json:"notify_at"`
	Title    string      `json:"title"`
	Body     string      `json:"body"`
}

// NewDescriptor builds the descriptor for next. lead moves NotifyAt ahead of
// the prayer; timeFormat is a Go layout for the body text.
func NewDescriptor(next prayer.NextPrayer, lead time.Duration, timeFormat string) Descriptor {
	at := next.Time.Format(timeFormat)
	body := fmt.Sprintf("%s prayer at %s", next.Name, at)
	if lead > 0 {
		body = fmt.Sprintf("%s prayer in %d minutes (%s)", next.Name, int(lead/time.Minute), at)
	}
	return Descriptor{
		ID:       uuid.NewString(),
		Prayer:   next.Name,
		Time:     next.Time,
		NotifyAt: next.Time.Add(-lead),
		Title:    fmt.Sprintf("Time for %s", next.Name),
		Body:     body,
	}
}

// Publisher delivers a descriptor to whatever arms the alert.
type Publisher interface {
	Publish(ctx context.Context, d Descriptor) error
}

// LogPublisher writes descriptors to the log. It is the fallback when no
// broker is configured.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(_ context.Context, d Descriptor) error {
	p.Log.Info().
		Str("id", d.ID).
		Str("prayer", string(d.Prayer)).
		Time("time", d.Time).
		Time("notify_at", d.NotifyAt).
		Msg(d.Body)
	return nil
}

// MQTTPublisher publishes descriptors as retained JSON so a subscriber that
// connects late still receives the current one.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

// DialMQTT connects to broker and returns the client.
func DialMQTT(broker, clientID string, log zerolog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", broker).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, d Descriptor) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
