//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/internal/platform/kafka/producer"
	"custodia/pkg/testutil/containers"
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
	mgr := containers.GetManager()
	s.kafka = mgr.GetKafka(s.T())

	cfg := producer.Config{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

// TestProduceSyncDeliversMessage verifies synchronous produce actually delivers.
// Produce only returns success after broker acknowledgment.
func (s *ProducerIntegrationSuite) TestProduceSyncDeliversMessage() {
	ctx := context.Background()
	topic := "custodia-audit-sync"

	err := s.kafka.CreateTopic(ctx, topic, 1, 1)
	s.Require().NoError(err)

	msg := &producer.Message{
		Topic: topic,
		Key:   []byte("acct_alice"),
		Value: []byte(`{"module":"consent","action":"create"}`),
	}

	err = s.producer.Produce(ctx, msg)
	s.Require().NoError(err)

	consumer, err := s.kafka.NewConsumer(ctx, "audit-sync-verifier", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "acct_alice"
	})

	s.Require().NotNil(record, "message should be consumable")
	s.Equal(`{"module":"consent","action":"create"}`, string(record.Value))
}

// TestProducePreservesHeaders verifies header propagation. The audit sink
// relies on the module and emitted headers reaching consumers intact.
func (s *ProducerIntegrationSuite) TestProducePreservesHeaders() {
	ctx := context.Background()
	topic := "custodia-audit-headers"

	err := s.kafka.CreateTopic(ctx, topic, 1, 1)
	s.Require().NoError(err)

	msg := &producer.Message{
		Topic: topic,
		Key:   []byte("acct_bob"),
		Value: []byte(`{"module":"access","action":"grant"}`),
		Headers: map[string]string{
			"module":  "access",
			"emitted": "2026-08-26T10:00:00Z",
		},
	}

	err = s.producer.Produce(ctx, msg)
	s.Require().NoError(err)

	consumer, err := s.kafka.NewConsumer(ctx, "audit-headers-verifier", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "acct_bob"
	})

	s.Require().NotNil(record, "message should be consumable")

	headers := make(map[string]string)
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}

	s.Equal("access", headers["module"])
	s.Equal("2026-08-26T10:00:00Z", headers["emitted"])
}

// TestProduceToNonExistentTopicAutoCreates verifies auto-topic creation, so
// the audit sink works against a fresh broker without provisioning.
func (s *ProducerIntegrationSuite) TestProduceToNonExistentTopicAutoCreates() {
	ctx := context.Background()
	topic := "custodia-audit-auto-" + time.Now().Format("20060102150405")

	msg := &producer.Message{
		Topic: topic,
		Key:   []byte("acct_carol"),
		Value: []byte(`{"module":"identity","action":"register"}`),
	}

	err := s.producer.Produce(ctx, msg)
	s.Require().NoError(err)

	consumer, err := s.kafka.NewConsumer(ctx, "audit-auto-create-verifier", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "acct_carol"
	})

	s.Require().NotNil(record, "message should be consumable from auto-created topic")
}

// TestProducerHealthy verifies the health check against a running broker.
func (s *ProducerIntegrationSuite) TestProducerHealthy() {
	ctx := context.Background()
	s.True(s.producer.Healthy(ctx))
}
