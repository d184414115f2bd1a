package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []interface{}   `json:"params"`
}

func rpcServer(t *testing.T, handle func(req request) (interface{}, *jsonError)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handle(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type jsonError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func failingServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type recordingObserver struct {
	mu     sync.Mutex
	calls  int
	failed int
}

func (o *recordingObserver) ObserveRPC(_, _ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if err != nil {
		o.failed++
	}
}

func TestNewPoolRequiresNodes(t *testing.T) {
	_, err := NewPool(nil, Options{})
	assert.ErrorIs(t, err, ErrNoRPCNodes)
}

func TestCallDecodesResult(t *testing.T) {
	srv, _ := rpcServer(t, func(req request) (interface{}, *jsonError) {
		assert.Equal(t, "suix_getBalance", req.Method)
		require.Len(t, req.Params, 2)
		return map[string]string{"totalBalance": "1500000000"}, nil
	})

	pool, err := NewPool([]string{srv.URL}, Options{})
	require.NoError(t, err)

	var out struct {
		TotalBalance string `json:"totalBalance"`
	}
	require.NoError(t, pool.Call(context.Background(), &out, "suix_getBalance", "0xabc", "0x2::sui::SUI"))
	assert.Equal(t, "1500000000", out.TotalBalance)

	success, failed, _ := pool.Nodes()[0].Metrics()
	assert.Equal(t, uint64(1), success)
	assert.Equal(t, uint64(0), failed)
}

func TestCallFailsOverToNextNode(t *testing.T) {
	bad, badCalls := failingServer(t)
	good, goodCalls := rpcServer(t, func(request) (interface{}, *jsonError) {
		return "ok", nil
	})

	observer := &recordingObserver{}
	pool, err := NewPool([]string{bad.URL, good.URL}, Options{Retries: 2, Observer: observer})
	require.NoError(t, err)

	var out string
	require.NoError(t, pool.Call(context.Background(), &out, "sui_getChainIdentifier"))
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(badCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(goodCalls))

	assert.False(t, pool.Nodes()[0].Available(time.Now()), "failed node is cooling down")
	assert.Equal(t, 2, observer.calls)
	assert.Equal(t, 1, observer.failed)

	// Следующий вызов идет сразу на здоровый узел
	require.NoError(t, pool.Call(context.Background(), &out, "sui_getChainIdentifier"))
	assert.Equal(t, int32(1), atomic.LoadInt32(badCalls))
}

func TestCallDoesNotRetryNodeErrors(t *testing.T) {
	srv, calls := rpcServer(t, func(request) (interface{}, *jsonError) {
		return nil, &jsonError{Code: -32602, Message: "invalid params"}
	})

	pool, err := NewPool([]string{srv.URL}, Options{Retries: 3})
	require.NoError(t, err)

	var out interface{}
	err = pool.Call(context.Background(), &out, "sui_getObject", "bad")
	require.Error(t, err)
	assert.True(t, IsNodeError(err))

	code, ok := NodeErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, -32602, code)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "sui_getObject", rpcErr.Method)
	assert.Equal(t, srv.URL, rpcErr.NodeURL)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCallGivesUpAfterRetries(t *testing.T) {
	srv, calls := failingServer(t)

	pool, err := NewPool([]string{srv.URL}, Options{Retries: 1})
	require.NoError(t, err)

	var out interface{}
	err = pool.Call(context.Background(), &out, "suix_getCoins")
	require.Error(t, err)
	assert.False(t, IsNodeError(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestCallRespectsContext(t *testing.T) {
	srv, _ := failingServer(t)

	pool, err := NewPool([]string{srv.URL}, Options{Retries: 5})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out interface{}
	assert.Error(t, pool.Call(ctx, &out, "suix_getCoins"))
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	pool, err := NewPool([]string{srv.URL}, Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	var out interface{}
	err = pool.Call(context.Background(), &out, "sui_getLatestCheckpointSequenceNumber")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNextNodeWhenAllCoolingDown(t *testing.T) {
	pool, err := NewPool([]string{"http://a", "http://b"}, Options{})
	require.NoError(t, err)

	pool.Nodes()[0].markFailed(time.Minute)
	pool.Nodes()[1].markFailed(time.Second)

	assert.Equal(t, "http://b", pool.nextNode().URL)
}
