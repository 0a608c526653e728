package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/hubclient"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/hub"
)

// fakeHubClient stands in for HubClientActor in controller tests: it
// answers health checks and call_service requests without touching a
// real websocket. Tests publish StateChanged/Reconnected/
// ConnectionStatus directly on the stream the controller handed this
// provider at startup.
type fakeHubClient struct {
	healthy bool
}

func (f *fakeHubClient) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case domain.HealthRequest:
		ctx.Respond(domain.HealthResponse{Id: hubclient.ActorID, Healthy: f.healthy, State: "running"})
	case hubclient.CallServiceRequest:
		ctx.Respond(hubclient.CallServiceResponse{})
	}
}

// sinkActor records every EntityChange it receives onto a channel, a
// stand-in for a remote session's mailbox.
type sinkActor struct {
	changes chan EntityChange
}

func (s *sinkActor) Receive(ctx actor.Context) {
	if c, ok := ctx.Message().(EntityChange); ok && s.changes != nil {
		s.changes <- c
	}
}

func newTestController(t *testing.T) (*actor.ActorSystem, *actor.PID, *eventstream.EventStream) {
	as := actor.NewActorSystem()
	var stream *eventstream.EventStream
	provider := func(cfg config.HassConfig, s *eventstream.EventStream) actor.Actor {
		stream = s
		return &fakeHubClient{healthy: true}
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewControllerActor(config.HassConfig{URL: "ws://test", Token: "test-token"}, provider, zap.NewNop())
	})
	pid := as.Root.Spawn(props)
	t.Cleanup(func() { as.Root.Stop(pid) })

	require.Eventually(t, func() bool { return stream != nil }, time.Second, 5*time.Millisecond)
	return as, pid, stream
}

func TestControllerHealthReflectsHubClient(t *testing.T) {
	as, pid, _ := newTestController(t)

	res, err := as.Root.RequestFuture(pid, domain.HealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.HealthResponse)
	require.True(t, ok)
	assert.True(t, resp.Healthy)
	assert.Equal(t, ActorID, resp.Id)
}

func TestControllerSubscribeAndFanOutStateChanged(t *testing.T) {
	as, pid, stream := newTestController(t)

	changes := make(chan EntityChange, 4)
	sink := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &sinkActor{changes: changes}
	}))

	as.Root.Send(pid, RegisterSession{SessionID: "sess-1", PID: sink})

	_, err := as.Root.RequestFuture(pid, SubscribeEntities{SessionID: "sess-1", EntityIDs: []string{"light.kitchen"}}, time.Second).Result()
	require.NoError(t, err)

	stream.Publish(hubclient.StateChanged{
		EntityID: "light.kitchen",
		NewState: &hub.State{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{"brightness": float64(128)}},
	})

	select {
	case c := <-changes:
		assert.Equal(t, "light.kitchen", c.EntityID)
		assert.Equal(t, "ON", c.State)
		assert.Equal(t, 50, c.Attributes["brightness"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for EntityChange")
	}
}

func TestControllerReconnectedOnlyFansOutChangedEntities(t *testing.T) {
	as, pid, stream := newTestController(t)

	changes := make(chan EntityChange, 8)
	sink := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &sinkActor{changes: changes}
	}))
	as.Root.Send(pid, RegisterSession{SessionID: "sess-reconnect", PID: sink})
	_, err := as.Root.RequestFuture(pid, SubscribeEntities{
		SessionID: "sess-reconnect",
		EntityIDs: []string{"light.kitchen", "switch.fan"},
	}, time.Second).Result()
	require.NoError(t, err)

	stream.Publish(hubclient.StateChanged{
		EntityID: "light.kitchen",
		NewState: &hub.State{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{}},
	})
	stream.Publish(hubclient.StateChanged{
		EntityID: "switch.fan",
		NewState: &hub.State{EntityID: "switch.fan", State: "on", Attributes: map[string]any{}},
	})
	for i := 0; i < 2; i++ {
		select {
		case <-changes:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for initial EntityChange")
		}
	}

	// Reconnect snapshot: light.kitchen keeps its state (no change),
	// switch.fan flips to "off" (a real change).
	stream.Publish(hubclient.Reconnected{Snapshot: []hub.State{
		{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{}},
		{EntityID: "switch.fan", State: "off", Attributes: map[string]any{}},
	}})

	select {
	case c := <-changes:
		assert.Equal(t, "switch.fan", c.EntityID)
		assert.Equal(t, "OFF", c.State)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for switch.fan EntityChange")
	}

	select {
	case c := <-changes:
		t.Fatalf("unexpected EntityChange for unchanged entity: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestControllerDropsOutOfOrderStateChanged(t *testing.T) {
	as, pid, stream := newTestController(t)

	changes := make(chan EntityChange, 4)
	sink := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &sinkActor{changes: changes}
	}))
	as.Root.Send(pid, RegisterSession{SessionID: "sess-ooo", PID: sink})
	_, err := as.Root.RequestFuture(pid, SubscribeEntities{SessionID: "sess-ooo", EntityIDs: []string{"light.kitchen"}}, time.Second).Result()
	require.NoError(t, err)

	newer := time.Now()
	older := newer.Add(-time.Minute)

	stream.Publish(hubclient.StateChanged{
		EntityID: "light.kitchen",
		NewState: &hub.State{EntityID: "light.kitchen", State: "on", LastUpdated: newer},
	})
	select {
	case c := <-changes:
		assert.Equal(t, "ON", c.State)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first EntityChange")
	}

	stream.Publish(hubclient.StateChanged{
		EntityID: "light.kitchen",
		NewState: &hub.State{EntityID: "light.kitchen", State: "off", LastUpdated: older},
	})

	res, err := as.Root.RequestFuture(pid, domain.HealthRequest{}, time.Second).Result()
	require.NoError(t, err)

	select {
	case c := <-changes:
		t.Fatalf("unexpected EntityChange for stale update: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}

	resp, ok := res.(domain.HealthResponse)
	require.True(t, ok)
	assert.Equal(t, int64(1), resp.OutOfOrderDropped)
}

func TestControllerEntityCommandUnknownEntity(t *testing.T) {
	as, pid, _ := newTestController(t)

	res, err := as.Root.RequestFuture(pid, EntityCommand{EntityID: "light.missing", CmdID: "on"}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(EntityCommandResponse)
	require.True(t, ok)
	assert.Error(t, resp.ResponseError)
}

func TestControllerEntityCommandRoundTrip(t *testing.T) {
	as, pid, stream := newTestController(t)

	stream.Publish(hubclient.StateChanged{
		EntityID: "light.kitchen",
		NewState: &hub.State{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{}},
	})
	as.Root.Send(pid, hubclient.ConnectionStatus{Connected: true})

	require.Eventually(t, func() bool {
		res, err := as.Root.RequestFuture(pid, GetEntityStates{EntityIDs: []string{"light.kitchen"}}, time.Second).Result()
		if err != nil {
			return false
		}
		resp, ok := res.(GetEntityStatesResponse)
		return ok && len(resp.Entities) == 1
	}, 2*time.Second, 20*time.Millisecond)

	res, err := as.Root.RequestFuture(pid, EntityCommand{EntityID: "light.kitchen", CmdID: "ON"}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(EntityCommandResponse)
	require.True(t, ok)
	assert.NoError(t, resp.ResponseError)
}

func TestControllerUnregisterSessionClearsSubscriptions(t *testing.T) {
	as, pid, _ := newTestController(t)

	sink := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return &sinkActor{} }))
	as.Root.Send(pid, RegisterSession{SessionID: "sess-2", PID: sink})
	_, err := as.Root.RequestFuture(pid, SubscribeEntities{SessionID: "sess-2", EntityIDs: []string{"switch.fan"}}, time.Second).Result()
	require.NoError(t, err)

	as.Root.Send(pid, UnregisterSession{SessionID: "sess-2"})

	require.Eventually(t, func() bool {
		res, err := as.Root.RequestFuture(pid, GetAvailableEntities{}, time.Second).Result()
		return err == nil && res != nil
	}, time.Second, 20*time.Millisecond)
}

func TestControllerReconfigureHubRespawnsClient(t *testing.T) {
	as := actor.NewActorSystem()
	var mu sync.Mutex
	var seenCfgs []string
	provider := func(cfg config.HassConfig, s *eventstream.EventStream) actor.Actor {
		mu.Lock()
		seenCfgs = append(seenCfgs, cfg.URL)
		mu.Unlock()
		return &fakeHubClient{healthy: true}
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewControllerActor(config.HassConfig{URL: "ws://first", Token: "first-token"}, provider, zap.NewNop())
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seenCfgs) == 1
	}, time.Second, 10*time.Millisecond)

	as.Root.Send(pid, ReconfigureHub{Cfg: config.HassConfig{URL: "ws://second"}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seenCfgs) == 2 && seenCfgs[1] == "ws://second"
	}, time.Second, 10*time.Millisecond)
}
