package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/initia-labs/corerpc/types"
)

type capturedRequest struct {
	ID      uint64          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`

	user, pass string
	hasAuth    bool
	ctype      string
}

// newNode starts a fake node that records requests and answers with respond.
func newNode(t *testing.T, respond func(w http.ResponseWriter, req capturedRequest)) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req capturedRequest
		require.NoError(t, json.Unmarshal(body, &req))
		req.user, req.pass, req.hasAuth = r.BasicAuth()
		req.ctype = r.Header.Get("Content-Type")

		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()

		respond(w, req)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), seen...)
	}
}

func writeResult(w http.ResponseWriter, id uint64, result string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":`+jsonNumber(id)+`,"result":`+result+`}`)
}

func jsonNumber(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRequest_Envelope(t *testing.T) {
	srv, seen := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		writeResult(w, req.ID, `42`)
	})
	r := New(srv.URL, "", "")

	count, err := Do[uint64](context.Background(), r, "getblockcount", []any{})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), count)

	_, err = Do[uint64](context.Background(), r, "getblockhash", []any{7})
	require.NoError(t, err)

	reqs := seen()
	require.Len(t, reqs, 2)
	assert.Equal(t, "2.0", reqs[0].JSONRPC)
	assert.Equal(t, "getblockcount", reqs[0].Method)
	assert.JSONEq(t, `[]`, string(reqs[0].Params))
	assert.Equal(t, "application/json", reqs[0].ctype)
	assert.Equal(t, uint64(1), reqs[0].ID)
	assert.Equal(t, uint64(2), reqs[1].ID)
	assert.JSONEq(t, `[7]`, string(reqs[1].Params))
}

func TestRequest_BasicAuth(t *testing.T) {
	srv, seen := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		writeResult(w, req.ID, `null`)
	})

	require.NoError(t, New(srv.URL, "alice", "secret").Request(context.Background(), "ping", nil, nil))
	require.NoError(t, New(srv.URL, "alice", "").Request(context.Background(), "ping", nil, nil))
	require.NoError(t, New(srv.URL, "", "secret").Request(context.Background(), "ping", nil, nil))

	reqs := seen()
	require.Len(t, reqs, 3)
	assert.True(t, reqs[0].hasAuth)
	assert.Equal(t, "alice", reqs[0].user)
	assert.Equal(t, "secret", reqs[0].pass)
	assert.False(t, reqs[1].hasAuth, "partial credentials must not be sent")
	assert.False(t, reqs[2].hasAuth, "partial credentials must not be sent")
	assert.JSONEq(t, `[]`, string(reqs[0].Params))
}

func TestRequest_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   types.ErrorType
	}{
		{http.StatusBadRequest, types.ErrTypeClient},
		{http.StatusUnauthorized, types.ErrTypeClient},
		{http.StatusForbidden, types.ErrTypeClient},
		{http.StatusNotFound, types.ErrTypeClient},
		{http.StatusInternalServerError, types.ErrTypeServer},
		{http.StatusServiceUnavailable, types.ErrTypeServer},
		{http.StatusFound, types.ErrTypeServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, "diagnostic text")
			})

			err := New(srv.URL, "", "").Request(context.Background(), "getblockcount", nil, nil)
			require.Error(t, err)
			assert.Equal(t, tt.want, types.ErrorTypeOf(err))

			var se *types.StandardError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "diagnostic text", se.Body)
			assert.Equal(t, tt.status, se.Details["status"])
		})
	}
}

func TestRequest_DecodeFailureKeepsBody(t *testing.T) {
	srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		_, _ = io.WriteString(w, "<html>not json</html>")
	})

	err := New(srv.URL, "", "").Request(context.Background(), "getblockcount", nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTypeDecode, types.ErrorTypeOf(err))

	var se *types.StandardError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "<html>not json</html>", se.Body)
	require.Error(t, se.Cause)
	assert.Contains(t, err.Error(), "<html>not json</html>")
}

func TestRequest_NotAResponse(t *testing.T) {
	bodies := []string{
		`{}`,
		`null`,
		`{"id":1}`,
		`{"id":1,"result":null}`,
		`{"jsonrpc":"2.0","id":1,"status":"ok"}`,
		`[{"id":1,"result":5}]`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
				_, _ = io.WriteString(w, body)
			})

			n, err := Do[uint64](context.Background(), New(srv.URL, "", ""), "getblockcount", nil)
			require.Error(t, err)
			assert.Zero(t, n)
			assert.Equal(t, types.ErrTypeDecode, types.ErrorTypeOf(err))

			var se *types.StandardError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, body, se.Body)
		})
	}
}

func TestRequest_NullResultIntoNullable(t *testing.T) {
	srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		writeResult(w, req.ID, `null`)
	})

	hash, err := Do[*string](context.Background(), New(srv.URL, "", ""), "getbestblockhash", nil)
	require.NoError(t, err)
	assert.Nil(t, hash)
}

func TestAgentTimeout(t *testing.T) {
	_, ok := agentTimeout(context.Background())
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	timeout, ok := agentTimeout(ctx)
	require.True(t, ok)
	assert.Greater(t, timeout, 50*time.Second)
	assert.LessOrEqual(t, timeout, time.Minute)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	timeout, ok = agentTimeout(expired)
	require.True(t, ok)
	assert.Positive(t, timeout)
}

func TestRequest_ResultShapeMismatch(t *testing.T) {
	srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		writeResult(w, req.ID, `"not a number"`)
	})

	_, err := Do[uint64](context.Background(), New(srv.URL, "", ""), "getblockcount", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTypeDecode, types.ErrorTypeOf(err))
	assert.Contains(t, err.Error(), `"not a number"`)
}

func TestRequest_RPCError(t *testing.T) {
	srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		// both members present: the error must win
		_, _ = io.WriteString(w, `{"id":1,"result":5,"error":{"code":-8,"message":"Block height out of range","data":{"h":9}}}`)
	})

	out, err := Do[int](context.Background(), New(srv.URL, "", ""), "getblockhash", []any{9})
	require.Error(t, err)
	assert.Zero(t, out)
	assert.Equal(t, types.ErrTypeRPC, types.ErrorTypeOf(err))

	var rpcErr *types.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(-8), rpcErr.Code)
	assert.Equal(t, "Block height out of range", rpcErr.Message)
	assert.JSONEq(t, `{"h":9}`, string(rpcErr.Data))
}

func TestRequest_ToleratesIds(t *testing.T) {
	bodies := []string{
		`{"result":1}`,
		`{"id":null,"result":1}`,
		`{"id":"abc","result":1}`,
		`{"id":999,"result":1}`,
	}
	for _, body := range bodies {
		srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
			_, _ = io.WriteString(w, body)
		})
		got, err := Do[int](context.Background(), New(srv.URL, "", ""), "uptime", nil)
		require.NoError(t, err, body)
		assert.Equal(t, 1, got)
	}
}

func TestRequest_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, "", "").Request(context.Background(), "getblockcount", nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTypeTransport, types.ErrorTypeOf(err))
}

func TestRequest_EncodeError(t *testing.T) {
	r := New("http://127.0.0.1:1", "", "")
	err := r.Request(context.Background(), "bad", []any{make(chan int)}, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTypeEncode, types.ErrorTypeOf(err))
}

func TestRequest_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv, _ := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		<-release
		writeResult(w, req.ID, `1`)
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := New(srv.URL, "", "").Request(ctx, "waitfornewblock", []any{0}, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTypeTransport, types.ErrorTypeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClone_IndependentIds(t *testing.T) {
	srv, seen := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		writeResult(w, req.ID, `null`)
	})
	r := New(srv.URL, "", "")

	require.NoError(t, r.Request(context.Background(), "ping", nil, nil))
	require.NoError(t, r.Request(context.Background(), "ping", nil, nil))

	clone := r.Clone()
	assert.Equal(t, r.URL(), clone.URL())
	require.NoError(t, clone.Request(context.Background(), "ping", nil, nil))
	require.NoError(t, r.Request(context.Background(), "ping", nil, nil))

	ids := []uint64{}
	for _, req := range seen() {
		ids = append(ids, req.ID)
	}
	assert.Equal(t, []uint64{1, 2, 1, 3}, ids)
}

func TestRequest_ConcurrentIdsUnique(t *testing.T) {
	srv, seen := newNode(t, func(w http.ResponseWriter, req capturedRequest) {
		writeResult(w, req.ID, `null`)
	})
	r := New(srv.URL, "", "")

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Request(context.Background(), "ping", nil, nil))
		}()
	}
	wg.Wait()

	unique := map[uint64]struct{}{}
	for _, req := range seen() {
		unique[req.ID] = struct{}{}
	}
	assert.Len(t, unique, n)
}
