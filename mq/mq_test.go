package mq

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/initia-labs/corerpc/config"
	"github.com/initia-labs/corerpc/log"
)

func TestMessageEncoding(t *testing.T) {
	data, err := encodeMessage(Message{Chain: "main", Height: 840000, Hash: "0000000000000000000320283a032748cef8227873ff4872689bf23f1cda83a5"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chain":"main","height":840000,"hash":"0000000000000000000320283a032748cef8227873ff4872689bf23f1cda83a5"}`, string(data))

	m, err := decodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(840000), m.Height)

	_, err = decodeMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestParseStart(t *testing.T) {
	first, err := parseStart("first")
	require.NoError(t, err)
	assert.True(t, first.keep(Message{Height: 0}))

	_, err = parseStart("last")
	require.NoError(t, err)

	fromHeight, err := parseStart("height:100")
	require.NoError(t, err)
	assert.False(t, fromHeight.keep(Message{Height: 99}))
	assert.True(t, fromHeight.keep(Message{Height: 100}))
	assert.True(t, fromHeight.keep(Message{Height: 101}))

	for _, bad := range []string{"height:", "height:x", "height:-1", "middle", ""} {
		_, err := parseStart(bad)
		assert.Error(t, err, bad)
	}
}

// TestPublishSubscribe needs a local RabbitMQ with the stream plugin and
// is skipped unless RABBITMQ_TEST_HOST is set.
func TestPublishSubscribe(t *testing.T) {
	host := os.Getenv("RABBITMQ_TEST_HOST")
	if host == "" {
		t.Skip("RABBITMQ_TEST_HOST not set")
	}
	cfg := config.RabbitMQConfig{
		Host:       host,
		Port:       config.DefaultRabbitMQPort,
		VHost:      "/",
		User:       "guest",
		Password:   "guest",
		Partitions: 3,
		Stream:     "corerpc-tips-test",
	}

	pub, err := NewPublisher(cfg)
	require.NoError(t, err)
	defer pub.Close() //nolint:errcheck
	_ = pub.DeleteStream()
	require.NoError(t, pub.DeclareStream())

	sub, err := NewSubscriber(cfg, "corerpc-test", log.Discard())
	require.NoError(t, err)
	defer sub.Close() //nolint:errcheck

	var (
		mu       sync.Mutex
		received []uint64
	)
	require.NoError(t, sub.Subscribe("height:2", func(m Message) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, m.Height)
	}))

	for h := uint64(1); h <= 4; h++ {
		require.NoError(t, pub.Publish(Message{Chain: "regtest", Height: h, Hash: "00"}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, 10*time.Second, 100*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []uint64{2, 3, 4}, received)
}
