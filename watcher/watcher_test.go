package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/initia-labs/corerpc/client"
	"github.com/initia-labs/corerpc/config"
	"github.com/initia-labs/corerpc/log"
	"github.com/initia-labs/corerpc/mq"
)

type recordingPublisher struct {
	mu   sync.Mutex
	tips []mq.Message
	err  error
}

func (p *recordingPublisher) Publish(tip mq.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tips = append(p.tips, tip)
	return nil
}

func (p *recordingPublisher) published() []mq.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mq.Message(nil), p.tips...)
}

// newNode serves a unified getblockchaininfo whose height is read from height.
func newNode(t *testing.T, height *atomic.Uint64) *client.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))

		var result string
		switch req.Method {
		case "getnetworkinfo":
			result = `{"version":250000}`
		case "getblockchaininfo":
			h := height.Load()
			result = fmt.Sprintf(`{"chain":"regtest","blocks":%d,"headers":%d,"bestblockhash":"%064x","softforks":{},"warnings":""}`, h, h, h)
		default:
			http.Error(w, "unexpected method", http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"id":1,"result":`+result+`}`)
	}))
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, config.NoAuth())
	require.NoError(t, err)
	return c
}

func TestPoll_ReportsChanges(t *testing.T) {
	var height atomic.Uint64
	height.Store(100)
	pub := &recordingPublisher{}
	w := New(newNode(t, &height), log.Discard(), time.Second, WithPublisher(pub))

	_, ok := w.Tip()
	assert.False(t, ok)

	changed, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	height.Store(101)
	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	tip, ok := w.Tip()
	require.True(t, ok)
	assert.Equal(t, uint64(101), tip.Height)
	assert.Equal(t, "regtest", tip.Chain)
	assert.Equal(t, fmt.Sprintf("%064x", 101), tip.Hash)

	published := pub.published()
	require.Len(t, published, 2)
	assert.Equal(t, uint64(100), published[0].Height)
	assert.Equal(t, uint64(101), published[1].Height)
}

func TestPoll_PublishError(t *testing.T) {
	var height atomic.Uint64
	height.Store(5)
	pub := &recordingPublisher{err: errors.New("broker down")}
	w := New(newNode(t, &height), log.Discard(), time.Second, WithPublisher(pub))

	changed, err := w.Poll(context.Background())
	assert.True(t, changed)
	assert.EqualError(t, err, "broker down")

	// the tip is still recorded
	tip, ok := w.Tip()
	require.True(t, ok)
	assert.Equal(t, uint64(5), tip.Height)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var height atomic.Uint64
	height.Store(1)
	pub := &recordingPublisher{}
	w := New(newNode(t, &height), log.Discard(), 10*time.Millisecond,
		WithPublisher(pub), WithMinServerVersion("v26.0.0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(pub.published()) == 1 }, 2*time.Second, 5*time.Millisecond)
	height.Store(2)
	assert.Eventually(t, func() bool { return len(pub.published()) == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
