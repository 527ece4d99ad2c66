// Package kafka publishes audit entries to a Kafka topic.
//
// Records are keyed by object id so every entry for one object lands on the same
// partition, which keeps per-object append order for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "archgate/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client used by the sink.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Sink implements audit.BatchStore on Kafka.
type Sink struct {
	producer Producer
	topic    string
}

// NewSink wraps an existing producer.
func NewSink(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

// Dial connects to brokers with acks from all in-sync replicas and returns a sink.
func Dial(brokers []string, topic string) (*Sink, *kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka client: %w", err)
	}
	return NewSink(client, topic), client, nil
}

// EnsureTopic creates the audit topic if it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %s: %w", topic, err)
	}
	return nil
}

// Append publishes one entry and waits for the broker acknowledgement.
func (s *Sink) Append(ctx context.Context, entry audit.Entry) error {
	return s.AppendBatch(ctx, []audit.Entry{entry})
}

// AppendBatch publishes entries in order and waits for all acknowledgements.
func (s *Sink) AppendBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		rec, err := s.toRecord(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("publish audit entries: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying producer.
func (s *Sink) Close() {
	s.producer.Close()
}

func (s *Sink) toRecord(e audit.Entry) (*kgo.Record, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	payload, err := json.Marshal(e.ToRecord())
	if err != nil {
		return nil, fmt.Errorf("marshal audit record: %w", err)
	}
	return &kgo.Record{
		Topic: s.topic,
		Key:   []byte(strconv.FormatInt(int64(e.ObjectID), 10)),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(e.Action)},
		},
	}, nil
}
