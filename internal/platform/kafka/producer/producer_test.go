package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokers")

	_, err = New(Config{Brokers: " , ,"}, nil)
	assert.ErrorContains(t, err, "brokers")

	p, err := New(Config{Brokers: " 127.0.0.1:1, 127.0.0.1:1,"}, nil)
	require.NoError(t, err)
	p.Close()
}

func TestClosedProducerRejectsWork(t *testing.T) {
	p, err := New(Config{Brokers: "127.0.0.1:1", Acks: "1"}, nil)
	require.NoError(t, err)

	p.Close()
	p.Close()

	err = p.Produce(context.Background(), &Message{Topic: "auth.events", Value: []byte("{}")})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Ping(context.Background()), ErrClosed)
}
