package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// RecordBucket holds one serialized wizard record per key.
	RecordBucket = "farmwiz_records"

	streamName = "farmwiz_events"
)

// SubjectForFlow returns the wildcard subject for all events of a flow.
// Example: "farmwiz.parcel-add.>"
func SubjectForFlow(flow string) string {
	return fmt.Sprintf("farmwiz.%s.>", flow)
}

// SubjectFor returns the subject for one kind of event of a flow.
// Example: "farmwiz.parcel-add.submitted"
func SubjectFor(flow, kind string) string {
	return fmt.Sprintf("farmwiz.%s.%s", flow, kind)
}

// SetupRecordBucket creates or updates the key/value bucket for wizard records.
// Records expire after ttl without writes; zero keeps them forever.
func SetupRecordBucket(ctx context.Context, js jetstream.JetStream, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      RecordBucket,
		Description: "farmwiz wizard records",
		History:     1,
		TTL:         ttl,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating record bucket: %w", err)
	}
	return kv, nil
}

// SetupEventStream creates or updates the stream that journals wizard
// lifecycle events for every flow, with 30-day retention.
func SetupEventStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"farmwiz.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event stream: %w", err)
	}
	return stream, nil
}
