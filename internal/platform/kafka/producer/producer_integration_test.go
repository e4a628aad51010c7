//go:build integration

package producer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"dsnap/internal/platform/config"
	"dsnap/internal/platform/kafka/producer"
	id "dsnap/pkg/domain"
	audit "dsnap/pkg/platform/audit"
	kafkastore "dsnap/pkg/platform/audit/store/kafka"
	"dsnap/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
	prod, err := producer.New(config.KafkaConfig{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *ProducerIntegrationSuite) TestProduceDeliversWithHeaders() {
	ctx := context.Background()
	topic := "test-produce"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1))

	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("k1"),
		Value:   []byte("v1"),
		Headers: map[string]string{"event_type": "registration.created"},
	}))

	consumer, err := s.kafka.NewConsumer("test-produce-group", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForRecord(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "k1"
	})
	s.Require().NotNil(record)
	s.Equal("v1", string(record.Value))
	s.Require().Len(record.Headers, 1)
	s.Equal("registration.created", string(record.Headers[0].Value))
}

func (s *ProducerIntegrationSuite) TestRegistrationEventSink() {
	ctx := context.Background()
	topic := "dsnap.registration-events.test"

	store := kafkastore.New(s.producer, topic)
	event := audit.Event{
		Type:           audit.EventRegistrationCreated,
		RegistrationID: id.NewRegistrationID(),
		Timestamp:      time.Now().UTC(),
	}
	s.Require().NoError(store.Append(ctx, event))

	consumer, err := s.kafka.NewConsumer("test-events-group", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForRecord(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == event.RegistrationID.String()
	})
	s.Require().NotNil(record)

	var decoded audit.Event
	s.Require().NoError(json.Unmarshal(record.Value, &decoded))
	s.Equal(event.Type, decoded.Type)
	s.Equal(event.RegistrationID, decoded.RegistrationID)
	s.Nil(decoded.ActorID)
}

func (s *ProducerIntegrationSuite) TestHealth() {
	s.NoError(s.producer.Health(context.Background()))
}
