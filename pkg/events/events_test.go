package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results kgo.ProduceResults
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func (f *fakeProducer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func TestPublisher_SignatureStatus(t *testing.T) {
	prod := &fakeProducer{}
	p := NewPublisherWithProducer(prod, "", hclog.NewNullLogger())
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	ev, err := p.SignatureStatus(context.Background(), "sig-1", "signed", "ext-9", "Contract")
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)

	require.Len(t, prod.records, 1)
	rec := prod.records[0]
	assert.Equal(t, DefaultTopic, rec.Topic)
	assert.Equal(t, "signature:sig-1", string(rec.Key))

	var got Event
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, TypeSignatureStatus, got.Type)
	assert.Equal(t, "signed", got.Status)
	assert.Equal(t, "ext-9", got.ExternalID)
	assert.Equal(t, "2024-03-01T12:00:00Z", got.Timestamp.Format(time.RFC3339))

	p.Close()
	assert.True(t, prod.closed)
}

func TestPublisher_Error(t *testing.T) {
	prod := &fakeProducer{err: errors.New("broker down")}
	p := NewPublisherWithProducer(prod, "custom", nil)

	_, err := p.SignatureStatus(context.Background(), "sig-1", "signed", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Empty(t, prod.records)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "signature:s", partitionKey(&Event{ID: "e", SignatureID: "s"}))
	assert.Equal(t, "e", partitionKey(&Event{ID: "e"}))
}

func TestNewPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewPublisher(Config{Topic: "t"}, nil)
	assert.EqualError(t, err, "at least one broker is required")
}
