package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_ProvidesRecordBucketAndStream(t *testing.T) {
	ctx := context.Background()

	emb, err := Start(t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, emb.Close()) }()

	kv, err := SetupRecordBucket(ctx, emb.JetStream, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, RecordBucket, kv.Bucket())

	_, err = kv.Put(ctx, "tab-1.parcel-add", []byte(`{"sizeHa":2.5}`))
	require.NoError(t, err)
	entry, err := kv.Get(ctx, "tab-1.parcel-add")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sizeHa":2.5}`, string(entry.Value()))

	// Setting the bucket up again keeps existing data.
	kv, err = SetupRecordBucket(ctx, emb.JetStream, time.Hour)
	require.NoError(t, err)
	_, err = kv.Get(ctx, "tab-1.parcel-add")
	require.NoError(t, err)

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, jetstream.ErrKeyNotFound)

	stream, err := SetupEventStream(ctx, emb.JetStream)
	require.NoError(t, err)
	_, err = emb.JetStream.Publish(ctx, SubjectFor("parcel-add", "submitted"), []byte(`{}`))
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "farmwiz.crop-add.>", SubjectForFlow("crop-add"))
	assert.Equal(t, "farmwiz.crop-add.failed", SubjectFor("crop-add", "failed"))
}

func TestShutdown_NilSafe(t *testing.T) {
	assert.NoError(t, Shutdown(nil, nil))
}
