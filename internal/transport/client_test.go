package transport

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/pkg/api"
)

func newTestClient(t *testing.T, nodeID string) *Client {
	t.Helper()

	id, err := identity.Generate(nodeID)
	require.NoError(t, err)

	c := NewClient(id, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Быстрые повторы, чтобы тесты не ждали реальных задержек
	c.newBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}

	return c
}

func TestClient_Push_UnknownPeer(t *testing.T) {
	c := newTestClient(t, "node-a")

	_, err := c.Push(context.Background(), "node-x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestClient_Push_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusForbidden, "source does not match authenticated device", "")
	}))
	defer ts.Close()

	c := newTestClient(t, "node-a")
	c.AddPeer("node-b", ts.URL)

	_, err := c.Push(context.Background(), "node-b", nil)
	require.Error(t, err)

	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, http.StatusForbidden, srvErr.Status)

	// Ответ сервера не повторяется
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Push_RetriesNetworkErrors(t *testing.T) {
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Первая попытка обрывается на уровне соединения,
		// вторая отвечает нормально
		if calls.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}

		resp := api.PushResponse{
			Clock:     map[string]uint64{"node-b": 2},
			Decisions: map[string]api.Decision{},
		}
		require.NoError(t, writeJSON(w, http.StatusOK, resp))
	}))
	defer ts.Close()

	c := newTestClient(t, "node-a")
	c.AddPeer("node-b", ts.URL)

	ack, err := c.Push(context.Background(), "node-b", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, uint64(2), ack.Clock.Counter("node-b"))
}

func TestClient_Push_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, "node-a")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		require.NotEmpty(t, authHeader)
		require.Contains(t, authHeader, "Bearer ")

		// Токен проверяется публичным ключом клиента
		claims, err := ParseDeviceToken(authHeader[len("Bearer "):], func(deviceID string) (ed25519.PublicKey, error) {
			return c.id.SigningPub, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "node-a", claims.DeviceID)

		var req api.PushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "node-a", req.SourceID)

		require.NoError(t, writeJSON(w, http.StatusOK, api.PushResponse{}))
	}))
	defer ts.Close()

	c.AddPeer("node-b", ts.URL)

	_, err := c.Push(context.Background(), "node-b", nil)
	require.NoError(t, err)
}

func TestClient_Handshake_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "internal server error", "")
	}))
	defer ts.Close()

	c := newTestClient(t, "node-a")

	_, err := c.Handshake(context.Background(), ts.URL, "node-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handshake request failed")

	var srvErr *ServerError
	assert.True(t, errors.As(err, &srvErr))
}
