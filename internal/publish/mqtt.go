package publish

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

const (
	DefaultTopic          = "fhss-detector"
	DefaultQueueSize      = 32
	DefaultConnectTimeout = 10 * time.Second

	publishTimeout = 5 * time.Second
)

// Config describes the MQTT broker connection.
type Config struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Broker    string `yaml:"broker" json:"broker"` // e.g. tcp://localhost:1883
	ClientID  string `yaml:"clientID" json:"clientID"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"-"`
	Topic     string `yaml:"topic" json:"topic"` // topic prefix (default: fhss-detector)
	QoS       byte   `yaml:"qos" json:"qos"`
	Retain    bool   `yaml:"retain" json:"retain"`
	QueueSize int    `yaml:"queueSize" json:"queueSize"`
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("publish.Config: broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("publish.Config: QoS must be 0, 1 or 2: %d given", c.QoS)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("publish.Config: queue size must not be negative: %d given", c.QueueSize)
	}
	return nil
}

// DetectionPayload is the message published for every detection.
type DetectionPayload struct {
	Session   string             `json:"session"`
	Receiver  string             `json:"receiver"`
	Detection spectrum.Detection `json:"detection"`
}

// ErrorPayload is the message published for reported failures.
type ErrorPayload struct {
	Session   string    `json:"session"`
	Receiver  string    `json:"receiver"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// client is the subset of mqtt.Client used by the publisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type message struct {
	topic   string
	payload []byte
}

// WithLogger sets the logger for the publisher
func WithLogger(logger *slog.Logger) func(p *MQTT) {
	return func(p *MQTT) {
		p.logger = logger.With(slog.String("component", "mqtt"))
	}
}

// MQTT publishes detections and errors to a broker. Events are queued and
// published from a separate goroutine; when the queue is full the event is
// dropped.
type MQTT struct {
	client   client
	config   Config
	session  string
	receiver string

	mu      sync.RWMutex // guards closed and sends on queue
	closed  bool
	queue   chan message
	wg      sync.WaitGroup
	dropped atomic.Uint64

	logger *slog.Logger
}

// Connect connects to the broker and starts the publishing goroutine.
func Connect(cfg Config, session, receiver string, options ...func(p *MQTT)) (*MQTT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "fhss-detector-" + session[:min(8, len(session))]
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	p := newMQTT(nil, cfg, session, receiver, options...)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.logger.Info("connected to broker", slog.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warn("connection to broker lost", slog.Any("error", err))
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(DefaultConnectTimeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	p.client = c
	p.start()

	return p, nil
}

func newMQTT(c client, cfg Config, session, receiver string, options ...func(p *MQTT)) *MQTT {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	p := MQTT{
		client:   c,
		config:   cfg,
		session:  session,
		receiver: receiver,
		queue:    make(chan message, cfg.QueueSize),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

func (p *MQTT) start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		for m := range p.queue {
			token := p.client.Publish(m.topic, p.config.QoS, p.config.Retain, m.payload)
			if !token.WaitTimeout(publishTimeout) {
				p.logger.Warn("publish timed out", slog.String("topic", m.topic))
				continue
			}
			if err := token.Error(); err != nil {
				p.logger.Warn("publish failed", slog.String("topic", m.topic), slog.Any("error", err))
			}
		}
	}()
}

// Dropped returns the number of events discarded because the queue was full.
func (p *MQTT) Dropped() uint64 {
	return p.dropped.Load()
}

// Close flushes queued messages and disconnects from the broker.
func (p *MQTT) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.client.Disconnect(250)
}

func (p *MQTT) OnSpectrumUpdate(spectrum.Frame) {}

func (p *MQTT) OnDroneDetected(detection spectrum.Detection) {
	p.enqueue(p.config.Topic+"/detection", DetectionPayload{
		Session:   p.session,
		Receiver:  p.receiver,
		Detection: detection,
	})
}

func (p *MQTT) OnError(err error) {
	p.enqueue(p.config.Topic+"/error", ErrorPayload{
		Session:   p.session,
		Receiver:  p.receiver,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

func (p *MQTT) enqueue(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to encode payload", slog.Any("error", err))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.queue <- message{topic: topic, payload: payload}:
	default:
		p.dropped.Add(1)
	}
}
