//go:build integration

package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"corpsite/internal/platform/config"
	platformkafka "corpsite/internal/platform/kafka"
	audit "corpsite/pkg/platform/audit"
	"corpsite/pkg/platform/audit/consumer"
	auditkafka "corpsite/pkg/platform/audit/store/kafka"
	"corpsite/pkg/platform/audit/store/memory"
	"corpsite/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	cfg config.KafkaConfig
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.cfg = config.KafkaConfig{
		Brokers:           containers.RedpandaBrokers(s.T()),
		AuditTopic:        "contact.audit." + uuid.NewString()[:8],
		Partitions:        1,
		ReplicationFactor: 1,
		ArchiveGroup:      "archiver-test",
	}
}

func (s *KafkaSinkSuite) TestProducedEventsAreArchived() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	producer, err := platformkafka.NewProducer(s.cfg)
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(platformkafka.EnsureTopic(ctx, producer, s.cfg))
	s.Require().NoError(platformkafka.EnsureTopic(ctx, producer, s.cfg), "second call tolerates existing topic")

	sink := auditkafka.New(producer, s.cfg.AuditTopic)
	ts := time.Now().UTC().Truncate(time.Millisecond)
	for _, typ := range []audit.EventType{audit.EventAttempt, audit.EventSuccess} {
		err := sink.Append(ctx, audit.Event{
			ID:        uuid.NewString(),
			Timestamp: ts,
			Type:      typ,
			Category:  typ.Category(),
			IPHash:    "hash",
		})
		s.Require().NoError(err)
	}

	consumerClient, err := platformkafka.NewConsumer(s.cfg)
	s.Require().NoError(err)
	defer consumerClient.Close()

	archive := memory.NewInMemoryStore()
	archiver := consumer.NewArchiver(consumerClient, archive,
		consumer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- archiver.Run(runCtx) }()

	s.Eventually(func() bool {
		events, _ := archive.ListAll(ctx)
		return len(events) == 2
	}, 30*time.Second, 100*time.Millisecond)
	stop()
	s.NoError(<-done)

	successes, _ := archive.ListByType(ctx, audit.EventSuccess)
	s.Require().Len(successes, 1)
	s.Equal(audit.CategoryCompliance, successes[0].Category)
	s.True(ts.Equal(successes[0].Timestamp))
}
