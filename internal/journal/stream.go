package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/nats"
)

// Stream journals entries to a JetStream stream on subjects
// farmwiz.{flow}.{kind}.
type Stream struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	log    *logger.Logger
}

// NewStream creates or updates the event stream and returns a journal over it.
func NewStream(ctx context.Context, js jetstream.JetStream) (*Stream, error) {
	stream, err := nats.SetupEventStream(ctx, js)
	if err != nil {
		return nil, err
	}
	return &Stream{js: js, stream: stream, log: logger.With("journal")}, nil
}

// Append publishes e to its flow's subject.
func (s *Stream) Append(ctx context.Context, e Entry) error {
	e = stamp(e)
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	subject := nats.SubjectFor(e.Flow, e.Kind)
	ack, err := s.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	s.log.Debug("Journaled %s (seq=%d)", subject, ack.Sequence)
	return nil
}

// Recent reads the last n messages of the stream.
func (s *Stream) Recent(ctx context.Context, n int) ([]Entry, error) {
	info, err := s.stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stream info: %w", err)
	}
	last := info.State.LastSeq
	if last == 0 || n <= 0 {
		return nil, nil
	}
	start := uint64(1)
	if last > uint64(n) {
		start = last - uint64(n) + 1
	}

	consumer, err := s.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy: jetstream.DeliverByStartSequencePolicy,
		OptStartSeq:   start,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating consumer: %w", err)
	}

	const batchSize = 256
	entries := make([]Entry, 0, n)
	for len(entries) < n {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}
		count := 0
		for msg := range msgs.Messages() {
			count++
			var e Entry
			if err := json.Unmarshal(msg.Data(), &e); err != nil {
				meta, _ := msg.Metadata()
				if meta != nil {
					s.log.Warn("Skipping malformed entry (seq=%d): %v", meta.Sequence.Stream, err)
				}
				_ = msg.Ack()
				continue
			}
			entries = append(entries, e)
			_ = msg.Ack()
		}
		if count < batchSize {
			break
		}
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
