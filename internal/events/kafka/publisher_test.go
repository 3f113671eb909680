package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/peer-payments/internal/models/events"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesEventWithKeyAndName(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	event := events.TransferCompleted{
		TransferID:  "t1",
		FromAccount: "alice",
		ToAccount:   "bob",
		Amount:      decimal.RequireFromString("30.50"),
		OccurredAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), events.NameTransferCompleted, "t1", event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, []byte("t1"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, headerEventName, msg.Headers[0].Key)
	assert.Equal(t, events.NameTransferCompleted, string(msg.Headers[0].Value))

	var decoded events.TransferCompleted
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "alice", decoded.FromAccount)
	assert.True(t, decoded.Amount.Equal(event.Amount))
}

func TestPublishReturnsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("no brokers")}
	p := &Publisher{writer: w}

	err := p.Publish(context.Background(), events.NameMoneyRequested, "r1", events.MoneyRequested{RequestID: "r1"})
	assert.EqualError(t, err, "no brokers")
}

func TestPublishRejectsUnencodableEvent(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{}}

	err := p.Publish(context.Background(), "bad", "k", make(chan int))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
