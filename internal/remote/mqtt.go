package remote

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTStore is a broker-backed remote store for installations that sync
// through MQTT instead of the hosted database. The schedule arrives as a
// retained message on the schedule topic; telemetry goes out as QoS 1
// publishes so the broker confirms delivery before a queued record is
// discarded.
type MQTTStore struct {
	client paho.Client

	topicSchedule  string
	topicWeights   string
	topicMealLog   string
	topicContainer string

	mu       sync.Mutex
	schedule []byte
}

// NewMQTTStore connects to the broker and subscribes to the retained
// schedule topic for the given device.
func NewMQTTStore(broker, deviceID string) (*MQTTStore, error) {
	s := &MQTTStore{
		topicSchedule:  "feeder/" + deviceID + "/schedule",
		topicWeights:   "feeder/" + deviceID + "/weights",
		topicMealLog:   "feeder/" + deviceID + "/meal_notifications",
		topicContainer: "feeder/" + deviceID + "/status/container",
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("feederd-" + deviceID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			token := c.Subscribe(s.topicSchedule, 1, s.onSchedule)
			go func() {
				token.Wait()
				if err := token.Error(); err != nil {
					log.Printf("mqtt: subscribe schedule: %v", err)
				}
			}()
		})

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return s, nil
}

func (s *MQTTStore) onSchedule(_ paho.Client, msg paho.Message) {
	s.mu.Lock()
	s.schedule = append([]byte(nil), msg.Payload()...)
	s.mu.Unlock()
}

// FetchSchedule returns the most recently retained schedule document, or
// ok=false when none has arrived yet.
func (s *MQTTStore) FetchSchedule() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.schedule) == 0 {
		return nil, false
	}
	return append([]byte(nil), s.schedule...), true
}

// PushWeight publishes the record to the weights topic.
func (s *MQTTStore) PushWeight(rec WeightRecord) bool {
	return s.publish(s.topicWeights, rec)
}

// PushMealNotification publishes to the meal notification topic. The broker
// side buckets by the embedded date, so it travels in the payload here.
func (s *MQTTStore) PushMealNotification(n MealNotification) bool {
	payload := struct {
		MealNotification
		Date string `json:"date"`
	}{MealNotification: n, Date: n.Date}
	return s.publish(s.topicMealLog, payload)
}

// PushContainerStatus publishes the container state, retained so late
// subscribers see the current state immediately.
func (s *MQTTStore) PushContainerStatus(st ContainerStatus) bool {
	fields := map[string]any{"empty": st.Empty}
	if st.Empty {
		fields["eventId"] = st.EventID
		fields["emptySince"] = st.EventID
	} else {
		fields["clearedAt"] = st.EventID
	}
	return s.publishRetained(s.topicContainer, fields)
}

// Reachable reports whether the broker connection is up.
func (s *MQTTStore) Reachable() bool {
	return s.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (s *MQTTStore) Close() error {
	s.client.Disconnect(1000)
	return nil
}

func (s *MQTTStore) publish(topic string, body any) bool {
	return s.publishWith(topic, body, false)
}

func (s *MQTTStore) publishRetained(topic string, body any) bool {
	return s.publishWith(topic, body, true)
}

func (s *MQTTStore) publishWith(topic string, body any, retained bool) bool {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("mqtt: encode payload for %s: %v", topic, err)
		return false
	}

	// QoS 1 (at-least-once): the queue relies on the broker's ack.
	token := s.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(requestTimeout) {
		log.Printf("mqtt: publish to %s: timeout", topic)
		return false
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish to %s: %v", topic, err)
		return false
	}
	return true
}
