package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"weather-server/confs"
	"weather-server/entities"
)

// ReadingCreator stores a validated reading.
type ReadingCreator interface {
	Create(ctx context.Context, kind entities.Kind, tier entities.Tier, f entities.Fields) (*entities.Reading, error)
}

// Ingestor subscribes to weather/{tier}/{kind} topics and stores every
// valid JSON reading it receives. Invalid messages are logged and dropped.
type Ingestor struct {
	client   mqtt.Client
	topic    string
	readings ReadingCreator
	logger   *slog.Logger
	timeout  time.Duration

	mu        sync.RWMutex
	connected bool
}

func NewIngestor(cfg confs.Config, readings ReadingCreator, logger *slog.Logger) *Ingestor {
	in := &Ingestor{
		topic:    cfg.MQTTTopic,
		readings: readings,
		logger:   logger,
		timeout:  5 * time.Second,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBrokerURL)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// resubscribe on every (re)connect; the session is clean
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		in.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBrokerURL)
		if err := in.subscribe(c); err != nil {
			logger.Error("mqtt subscribe failed", "topic", in.topic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		in.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	in.client = mqtt.NewClient(opts)
	return in
}

// Connect starts the connection and waits for the first attempt to
// finish or ctx to end.
func (in *Ingestor) Connect(ctx context.Context) error {
	token := in.client.Connect()

	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			in.client.Disconnect(0)
			return ctx.Err()
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (in *Ingestor) subscribe(c mqtt.Client) error {
	token := c.Subscribe(in.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), in.timeout)
		defer cancel()
		_ = in.HandleMessage(ctx, msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", in.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", in.topic, err)
	}
	in.logger.Info("subscribed to mqtt topic", "topic", in.topic)
	return nil
}

// HandleMessage decodes and stores one reading. The error is returned
// for tests; the MQTT callback only logs it.
func (in *Ingestor) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	kind, tier, err := ParseTopic(topic)
	if err != nil {
		in.logger.Warn("ignoring mqtt message", "topic", topic, "error", err)
		return err
	}

	var input entities.ReadingInput
	if err := json.Unmarshal(payload, &input); err != nil {
		in.logger.Warn("failed to parse reading message", "topic", topic, "error", err, "payload", string(payload))
		return fmt.Errorf("%w: %v", entities.ErrInvalidField, err)
	}
	if strings.TrimSpace(input.ValueUnits) == "" || strings.TrimSpace(input.ElevationUnits) == "" || input.Timestamp == "" {
		err := fmt.Errorf("%w: value_units, elevation_units and timestamp are required", entities.ErrInvalidField)
		in.logger.Warn("invalid reading message", "topic", topic, "error", err)
		return err
	}
	fields, err := input.Fields()
	if err != nil {
		in.logger.Warn("invalid reading message", "topic", topic, "error", err)
		return err
	}

	reading, err := in.readings.Create(ctx, kind, tier, fields)
	if err != nil {
		in.logger.Warn("rejected mqtt reading", "topic", topic, "error", err)
		return err
	}
	in.logger.Debug("stored mqtt reading", "topic", topic, "id", reading.ID)
	return nil
}

// ParseTopic maps weather/{open|protected}/{kind} onto a kind and tier.
// The kind may be singular or plural.
func ParseTopic(topic string) (entities.Kind, entities.Tier, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "weather" {
		return 0, 0, fmt.Errorf("%w: unexpected topic %q", entities.ErrInvalidField, topic)
	}
	tier, err := entities.ParseTier(parts[1])
	if err != nil {
		return 0, 0, err
	}
	kind, err := entities.ParseKind(parts[2])
	if err != nil {
		return 0, 0, err
	}
	return kind, tier, nil
}

func (in *Ingestor) IsConnected() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.connected && in.client.IsConnected()
}

// Disconnect unsubscribes and closes the broker connection.
func (in *Ingestor) Disconnect() {
	if in.IsConnected() {
		in.client.Unsubscribe(in.topic).WaitTimeout(2 * time.Second)
	}
	in.client.Disconnect(250)
	in.setConnected(false)
	in.logger.Info("mqtt ingestor disconnected")
}

func (in *Ingestor) setConnected(v bool) {
	in.mu.Lock()
	in.connected = v
	in.mu.Unlock()
}
