//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "archgate/pkg/domain"
	audit "archgate/pkg/platform/audit"
	"archgate/pkg/platform/audit/store/kafka"
	"archgate/pkg/testutil/containers"
)

type SinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *kafka.Sink
	client   *kgo.Client
	topic    string
}

func TestSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SinkSuite))
}

func (s *SinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *SinkSuite) SetupTest() {
	s.topic = "archgate-audit-" + uuid.NewString()
	sink, client, err := kafka.Dial(s.redpanda.Brokers, s.topic)
	s.Require().NoError(err)
	s.sink, s.client = sink, client

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.topic, 3, 1))
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.topic, 3, 1), "an existing topic is not an error")
}

func (s *SinkSuite) TearDownTest() {
	s.sink.Close()
}

func (s *SinkSuite) consume(n int) []*kgo.Record {
	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out []*kgo.Record
	for len(out) < n {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out waiting for %d records, got %d", n, len(out))
		fetches.EachRecord(func(r *kgo.Record) {
			out = append(out, r)
		})
	}
	return out
}

func (s *SinkSuite) TestPublishesSinkSchemaKeyedByObject() {
	ctx := context.Background()
	e := audit.Entry{
		ID:        uuid.New(),
		Timestamp: time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC),
		ObjectID:  42,
		UserID:    id.AnonymousUser,
		Action:    audit.ActionView,
		Decision:  audit.Decision{Granted: true, Level: "full", Source: "none"},
	}
	s.Require().NoError(s.sink.Append(ctx, e))

	records := s.consume(1)
	s.Equal("42", string(records[0].Key))

	var got audit.Record
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(e.ID.String(), got.ID)
	s.Equal("2026-05-10T09:30:00Z", got.Timestamp)
	s.Equal(int64(42), got.ObjectID)
	s.Nil(got.UserID)
	s.Equal("view", got.Action)
	s.True(got.Granted)
}

func (s *SinkSuite) TestBatchPreservesPerObjectOrder() {
	ctx := context.Background()
	var batch []audit.Entry
	for i := range 5 {
		batch = append(batch, audit.Entry{
			ID:        uuid.New(),
			Timestamp: time.Now().UTC(),
			ObjectID:  7,
			UserID:    id.UserID(i + 1),
			Action:    audit.ActionBulkScan,
			Decision:  audit.Decision{Level: "denied", Reason: "embargoed", Source: "embargo"},
		})
	}
	s.Require().NoError(s.sink.AppendBatch(ctx, batch))

	records := s.consume(len(batch))
	for i, r := range records {
		var got audit.Record
		s.Require().NoError(json.Unmarshal(r.Value, &got))
		s.Equal(batch[i].ID.String(), got.ID)
		s.Equal(records[0].Partition, r.Partition)
	}
}
