package floorplan

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DetectionEvent is the payload published when a detection is accepted.
type DetectionEvent struct {
	FloorID    string         `json:"floorId"`
	Rooms      []DetectedRoom `json:"rooms"`
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source"`
	Timestamp  int64          `json:"timestamp"`
}

// Publisher pushes accepted detections to MQTT so the dashboard refreshes
// without polling. If client is nil, publishing is disabled.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool

	mu     sync.RWMutex
	latest map[string]*DetectionEvent
}

// NewPublisher creates a detection-event publisher.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = os.Getenv("MQTT_PUBLISH_PREFIX")
	}
	if prefix == "" {
		prefix = "floorsense"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // fire and forget; the store holds the durable copy
		retain:        true, // retain latest detection per floor
		latest:        make(map[string]*DetectionEvent),
	}
}

// PublishDetection publishes an accepted detection to the floor's topic
// and to the combined detections topic.
func (p *Publisher) PublishDetection(result DetectionResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	event := &DetectionEvent{
		FloorID:    result.FloorID,
		Rooms:      result.Rooms,
		Confidence: result.ConfidenceScore,
		Source:     result.Source,
		Timestamp:  time.Now().Unix(),
	}

	p.mu.Lock()
	p.latest[result.FloorID] = event
	p.mu.Unlock()

	if err := p.publishIndividual(event); err != nil {
		log.Printf("[PUBLISH] Error publishing detection for %s: %v", result.FloorID, err)
		return err
	}
	if err := p.publishCombined(); err != nil {
		log.Printf("[PUBLISH] Error publishing combined detections: %v", err)
		return err
	}
	return nil
}

func (p *Publisher) publishIndividual(event *DetectionEvent) error {
	topic := fmt.Sprintf("%s/%s", p.publishPrefix, event.FloorID)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling detection event: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	log.Printf("[PUBLISH] Published detection for %s: %d rooms, confidence %.2f",
		event.FloorID, len(event.Rooms), event.Confidence)
	return nil
}

func (p *Publisher) publishCombined() error {
	topic := fmt.Sprintf("%s/detections", p.publishPrefix)

	p.mu.RLock()
	combined := make(map[string]*DetectionEvent, len(p.latest))
	for k, v := range p.latest {
		combined[k] = v
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(combined)
	if err != nil {
		return fmt.Errorf("marshaling combined detections: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// NewMQTTClient connects to the configured broker. Returns an error when
// the broker is unreachable; callers run without publishing in that case.
func NewMQTTClient(cfg MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("floorsense-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timeout", cfg.Broker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}
