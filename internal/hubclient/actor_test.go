package hubclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/hub"
)

// fakeHub is a minimal hub server good enough to drive the client
// through Connecting -> Authenticating -> Subscribing -> Running.
func fakeHub(t *testing.T, token string) *httptest.Server {
	return fakeHubCounting(t, token, nil)
}

// fakeHubCounting is fakeHub plus an optional counter of accepted
// websocket connections, used to assert a client does not reconnect
// after a permanent failure.
func fakeHubCounting(t *testing.T, token string, connections *atomic.Int64) *httptest.Server {
	upgrader := websocket.Upgrader{}
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		if connections != nil {
			connections.Add(1)
		}

		send := func(v any) {
			data, _ := json.Marshal(v)
			conn.WriteMessage(websocket.TextMessage, data)
		}
		send(hub.Frame{Type: hub.TypeAuthRequired})

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var authFrame hub.Frame
		require.NoError(t, json.Unmarshal(data, &authFrame))
		if authFrame.AccessToken != token {
			send(hub.Frame{Type: hub.TypeAuthInvalid})
			return
		}
		send(hub.Frame{Type: hub.TypeAuthOK})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f hub.Frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			switch f.Type {
			case hub.TypeSubscribeEvents:
				success := true
				send(hub.Frame{ID: f.ID, Type: hub.TypeResult, Success: &success})
			case hub.TypeGetStates:
				success := true
				states, _ := json.Marshal([]hub.State{{EntityID: "light.kitchen", State: "on"}})
				send(hub.Frame{ID: f.ID, Type: hub.TypeResult, Success: &success, Result: states})
			case hub.TypePing:
				send(hub.Frame{ID: f.ID, Type: hub.TypePong})
			case hub.TypeCallService:
				success := true
				send(hub.Frame{ID: f.ID, Type: hub.TypeResult, Success: &success})
			}
		}
	}))
	return srv
}

func testHassConfig(srv *httptest.Server, token string) config.HassConfig {
	url := "ws" + srv.URL[len("http"):]
	return config.HassConfig{URL: url, Token: token, TLS: config.HassTLSConfig{Verify: false}}
}

func TestHubClientConnectsAuthenticatesAndSubscribes(t *testing.T) {
	srv := fakeHub(t, "good-token")
	defer srv.Close()

	as := actor.NewActorSystem()
	es := &eventstream.EventStream{}

	connected := make(chan Reconnected, 1)
	sub := es.Subscribe(func(v any) {
		if r, ok := v.(Reconnected); ok {
			connected <- r
		}
	})
	defer es.Unsubscribe(sub)

	logger := zap.NewNop()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewHubClientActor(testHassConfig(srv, "good-token"), es, logger)
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	select {
	case r := <-connected:
		require.Len(t, r.Snapshot, 1)
		assert.Equal(t, "light.kitchen", r.Snapshot[0].EntityID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Reconnected event")
	}
}

func TestHubClientHealthCheckReflectsRunningState(t *testing.T) {
	srv := fakeHub(t, "good-token")
	defer srv.Close()

	as := actor.NewActorSystem()
	es := &eventstream.EventStream{}
	logger := zap.NewNop()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewHubClientActor(testHassConfig(srv, "good-token"), es, logger)
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	assert.Eventually(t, func() bool {
		res, err := as.Root.RequestFuture(pid, domain.HealthRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		resp, ok := res.(domain.HealthResponse)
		return ok && resp.Healthy && resp.State == "running"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestHubClientCallServiceRoundTrip(t *testing.T) {
	srv := fakeHub(t, "good-token")
	defer srv.Close()

	as := actor.NewActorSystem()
	es := &eventstream.EventStream{}
	logger := zap.NewNop()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewHubClientActor(testHassConfig(srv, "good-token"), es, logger)
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	assert.Eventually(t, func() bool {
		res, err := as.Root.RequestFuture(pid, domain.HealthRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		resp, ok := res.(domain.HealthResponse)
		return ok && resp.Healthy
	}, 3*time.Second, 50*time.Millisecond)

	res, err := as.Root.RequestFuture(pid, CallServiceRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(CallServiceResponse)
	require.True(t, ok)
	assert.NoError(t, resp.ResponseError)
}

func TestProbeActorSucceedsOnGoodToken(t *testing.T) {
	srv := fakeHub(t, "good-token")
	defer srv.Close()

	as := actor.NewActorSystem()
	outcome := make(chan error, 1)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewProbeActor(testHassConfig(srv, "good-token"), zap.NewNop(), func(err error) {
			outcome <- err
		})
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	select {
	case err := <-outcome:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for probe outcome")
	}
}

func TestProbeActorFailsOnBadToken(t *testing.T) {
	srv := fakeHub(t, "good-token")
	defer srv.Close()

	as := actor.NewActorSystem()
	outcome := make(chan error, 1)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewProbeActor(testHassConfig(srv, "wrong-token"), zap.NewNop(), func(err error) {
			outcome <- err
		})
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	select {
	case err := <-outcome:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for probe outcome")
	}
}

func TestHubClientRejectsBadToken(t *testing.T) {
	var connections atomic.Int64
	srv := fakeHubCounting(t, "good-token", &connections)
	defer srv.Close()

	as := actor.NewActorSystem()
	es := &eventstream.EventStream{}
	logger := zap.NewNop()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewHubClientActor(testHassConfig(srv, "wrong-token"), es, logger)
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	assert.Eventually(t, func() bool {
		res, err := as.Root.RequestFuture(pid, domain.HealthRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		resp, ok := res.(domain.HealthResponse)
		return ok && !resp.Healthy && resp.State == "disconnected"
	}, 3*time.Second, 50*time.Millisecond)

	// auth_invalid must not trigger a retry with the same token: no
	// further connection attempt should arrive even well past a
	// would-be backoff delay.
	time.Sleep(2 * time.Second)
	assert.Equal(t, int64(1), connections.Load())

	res, err := as.Root.RequestFuture(pid, domain.HealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.HealthResponse)
	require.True(t, ok)
	assert.Equal(t, "disconnected", resp.State)
}
