package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/fhss-detector/internal/scanner"
	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

var _ scanner.Observer = (*MQTT)(nil)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []published
	disconnected bool
	block        chan struct{}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if c.block != nil {
		<-c.block
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func TestMQTT_PublishesDetectionsAndErrors(t *testing.T) {
	fc := &fakeClient{}
	p := newMQTT(fc, Config{Enabled: true, Broker: "tcp://test:1883", QoS: 1}, "session-1", "127.0.0.1:1234")
	p.start()

	p.OnSpectrumUpdate(spectrum.Frame{})
	p.OnDroneDetected(spectrum.Detection{Classification: "FrSky FHSS (915 MHz RC)", Confidence: 0.8})
	p.OnError(errors.New("stream closed: EOF"))
	p.Close()
	p.Close()

	require.Len(t, fc.messages, 2)
	assert.True(t, fc.disconnected)

	assert.Equal(t, "fhss-detector/detection", fc.messages[0].topic)
	assert.Equal(t, byte(1), fc.messages[0].qos)

	var detection DetectionPayload
	require.NoError(t, json.Unmarshal(fc.messages[0].payload, &detection))
	assert.Equal(t, "session-1", detection.Session)
	assert.Equal(t, "127.0.0.1:1234", detection.Receiver)
	assert.Equal(t, 0.8, detection.Detection.Confidence)

	assert.Equal(t, "fhss-detector/error", fc.messages[1].topic)

	var failure ErrorPayload
	require.NoError(t, json.Unmarshal(fc.messages[1].payload, &failure))
	assert.Equal(t, "stream closed: EOF", failure.Error)

	// events after close are ignored
	p.OnDroneDetected(spectrum.Detection{})
}

func TestMQTT_DropsWhenQueueIsFull(t *testing.T) {
	fc := &fakeClient{block: make(chan struct{})}
	p := newMQTT(fc, Config{Enabled: true, Broker: "tcp://test:1883", QueueSize: 1}, "s", "r")
	p.start()

	// the first message is taken by the publishing goroutine and blocks there
	p.OnDroneDetected(spectrum.Detection{})
	require.Eventually(t, func() bool { return len(p.queue) == 0 }, 5*time.Second, time.Millisecond)

	p.OnDroneDetected(spectrum.Detection{})
	p.OnDroneDetected(spectrum.Detection{})
	assert.Equal(t, uint64(1), p.Dropped())

	close(fc.block)
	p.Close()
	assert.Len(t, fc.messages, 2)
}

func TestConfig_Validate(t *testing.T) {
	disabled := Config{}
	assert.NoError(t, disabled.Validate())

	testCases := []struct {
		name string
		cfg  Config
	}{
		{"missing broker", Config{Enabled: true}},
		{"invalid qos", Config{Enabled: true, Broker: "tcp://b:1883", QoS: 3}},
		{"negative queue", Config{Enabled: true, Broker: "tcp://b:1883", QueueSize: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}
}
