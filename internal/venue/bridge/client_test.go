package bridge_test

import (
	"sync"
	"testing"
	"time"

	"quoteflow/internal/venue/bridge"
	"quoteflow/internal/venue/bridge/bridgetest"
	"quoteflow/pkg/backoff"
	"quoteflow/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestClientRoundTrip(t *testing.T) {
	srv := bridgetest.NewServer(func(s *bridgetest.Server, env bridge.Envelope) {
		if env.Type == "ping" {
			_ = s.Push("pong", map[string]int{"n": 1})
		}
	})
	defer srv.Close()

	var (
		mu  sync.Mutex
		got []bridge.Envelope
	)
	c, err := bridge.Dial(t.Context(), bridge.Config{URL: srv.URL()}, func(env bridge.Envelope) {
		mu.Lock()
		got = append(got, env)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer c.Close()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}

	require.NoError(t, c.Send("ping", struct{}{}))
	require.Eventually(t, func() bool { return count() == 1 }, time.Second, 5*time.Millisecond)

	srv.PushRaw([]byte("not json"))
	require.NoError(t, srv.Push("quote", quote{Symbol: "rb2505", Price: 3500}))

	require.Eventually(t, func() bool { return count() == 2 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "pong", got[0].Type)
	var q quote
	require.NoError(t, got[1].Decode(&q))
	mu.Unlock()
	assert.Equal(t, quote{Symbol: "rb2505", Price: 3500}, q)

	require.Len(t, srv.Received(), 1)
	assert.Equal(t, "ping", srv.Received()[0].Type)
}

func TestClientCloseIsIdempotent(t *testing.T) {
	srv := bridgetest.NewServer(nil)
	defer srv.Close()

	c, err := bridge.Dial(t.Context(), bridge.Config{URL: srv.URL()}, func(bridge.Envelope) {})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.NotPanics(t, func() { _ = c.Close() })
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop still running")
	}
	assert.NoError(t, c.Err())
	assert.ErrorIs(t, c.Send("ping", nil), exception.ErrConnectionClose)
}

func TestDialFailure(t *testing.T) {
	_, err := bridge.Dial(t.Context(), bridge.Config{
		URL:          "ws://127.0.0.1:1/none",
		DialAttempts: 2,
		Backoff:      backoff.Backoff{Min: time.Millisecond, Max: time.Millisecond},
	}, func(bridge.Envelope) {})
	assert.ErrorIs(t, err, exception.ErrConnection)

	_, err = bridge.Dial(t.Context(), bridge.Config{}, func(bridge.Envelope) {})
	assert.ErrorIs(t, err, exception.ErrInvalidArgument)
}

func TestEnvelopeDecodeWithoutData(t *testing.T) {
	var q quote
	assert.ErrorIs(t, bridge.Envelope{Type: "quote"}.Decode(&q), exception.ErrMissingField)
}

func TestClientSurvivesQuietGateway(t *testing.T) {
	srv := bridgetest.NewServer(nil)
	defer srv.Close()

	c, err := bridge.Dial(t.Context(), bridge.Config{URL: srv.URL(), ReadTimeout: 100 * time.Millisecond}, func(bridge.Envelope) {})
	require.NoError(t, err)
	defer c.Close()

	select {
	case <-c.Done():
		t.Fatalf("read loop ended while idle, err: %v", c.Err())
	case <-time.After(500 * time.Millisecond):
	}
	require.NoError(t, c.Send("subscribe_market_data", map[string][]string{"instruments": {"rb2505"}}))
	require.Eventually(t, func() bool { return len(srv.Received()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestClientReportsDroppedGateway(t *testing.T) {
	srv := bridgetest.NewServer(nil)

	c, err := bridge.Dial(t.Context(), bridge.Config{URL: srv.URL(), ReadTimeout: time.Second}, func(bridge.Envelope) {})
	require.NoError(t, err)
	defer c.Close()
	require.Eventually(t, func() bool { return srv.Conns() == 1 }, time.Second, 5*time.Millisecond)

	srv.Close()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop still running after the gateway went away")
	}
	assert.Error(t, c.Err())
	assert.ErrorIs(t, c.Send("ping", nil), exception.ErrConnectionClose)
}
