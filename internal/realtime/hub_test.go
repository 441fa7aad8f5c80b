package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/jobs"
)

func startHub(t *testing.T, rdb *redis.Client) *Hub {
	t.Helper()
	h := NewHub(rdb, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func connect(t *testing.T, h *Hub, userID uuid.UUID, role models.Role) *Client {
	t.Helper()
	c := &Client{ID: uuid.NewString(), UserID: userID, Role: role, Send: make(chan []byte, 8)}
	h.RegisterClient(c)
	return c
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "client channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected event: %s", msg)
	default:
	}
}

func TestJobChangedRouting(t *testing.T) {
	h := startHub(t, nil)

	clientID := uuid.New()
	techID := uuid.New()

	owner := connect(t, h, clientID, models.RoleClient)
	boundTech := connect(t, h, techID, models.RoleTechnician)
	otherTech := connect(t, h, uuid.New(), models.RoleTechnician)
	otherClient := connect(t, h, uuid.New(), models.RoleClient)
	admin := connect(t, h, uuid.New(), models.RoleAdmin)
	require.Eventually(t, func() bool { return h.clientCount() == 5 }, time.Second, 5*time.Millisecond)

	job := &models.Job{ID: uuid.New(), ClientID: clientID, Status: models.JobStatusPending, Title: "Broken dryer"}
	h.JobChanged(context.Background(), jobs.EventCreated, job)

	for _, c := range []*Client{owner, boundTech, otherTech, admin} {
		ev := receive(t, c)
		assert.Equal(t, jobs.EventCreated, ev.Type)
		require.NotNil(t, ev.Job)
		assert.Equal(t, job.ID, ev.Job.ID)
	}
	assertSilent(t, otherClient)

	job.Status = models.JobStatusAssigned
	job.TechnicianID = &techID
	h.JobChanged(context.Background(), jobs.EventAccepted, job)

	for _, c := range []*Client{owner, boundTech, admin} {
		ev := receive(t, c)
		assert.Equal(t, jobs.EventAccepted, ev.Type)
		assert.Equal(t, models.JobStatusAssigned, ev.Job.Status)
	}
	assertSilent(t, otherTech)
	assertSilent(t, otherClient)
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t, nil)
	userID := uuid.New()

	a := connect(t, h, userID, models.RoleClient)
	b := connect(t, h, userID, models.RoleClient)
	require.Eventually(t, func() bool { return h.clientCount() == 2 }, time.Second, 5*time.Millisecond)

	job := &models.Job{ID: uuid.New(), ClientID: userID, Status: models.JobStatusPending}
	h.JobChanged(context.Background(), jobs.EventPhotoAdded, job)
	assert.Equal(t, jobs.EventPhotoAdded, receive(t, a).Type)
	assert.Equal(t, jobs.EventPhotoAdded, receive(t, b).Type)

	h.UnregisterClient(a)
	require.Eventually(t, func() bool { return h.clientCount() == 1 }, time.Second, 5*time.Millisecond)
	_, ok := <-a.Send
	assert.False(t, ok, "send channel is closed on unregister")
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	h := startHub(t, nil)
	userID := uuid.New()

	c := &Client{ID: uuid.NewString(), UserID: userID, Role: models.RoleClient, Send: make(chan []byte, 1)}
	h.RegisterClient(c)
	require.Eventually(t, func() bool { return h.clientCount() == 1 }, time.Second, 5*time.Millisecond)

	job := &models.Job{ID: uuid.New(), ClientID: userID, Status: models.JobStatusPending}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.JobChanged(context.Background(), jobs.EventStatusChanged, job)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("JobChanged blocked on a full client")
	}
	assert.Len(t, c.Send, 1)
}

func TestHubShutdownReleasesClients(t *testing.T) {
	h := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	live := connect(t, h, uuid.New(), models.RoleClient)
	require.Eventually(t, func() bool { return h.clientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, ok := <-live.Send
	assert.False(t, ok, "live client is closed on shutdown")

	late := &Client{ID: uuid.NewString(), UserID: uuid.New(), Role: models.RoleClient, Send: make(chan []byte, 1)}
	returned := make(chan struct{})
	go func() {
		h.UnregisterClient(live)
		h.RegisterClient(late)
		h.UnregisterClient(late)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after shutdown")
	}
	_, ok = <-late.Send
	assert.False(t, ok, "late client is closed at once")
	assert.Equal(t, 0, h.clientCount())
}

func TestJobChangedPublishesToRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	h := startHub(t, rdb)
	clientID := uuid.New()

	sub := rdb.Subscribe(ctx, NotificationChannel(clientID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	job := &models.Job{ID: uuid.New(), ClientID: clientID, Status: models.JobStatusCompleted}
	h.JobChanged(ctx, jobs.EventStatusChanged, job)

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, jobs.EventStatusChanged, ev.Type)
		assert.Equal(t, job.ID, ev.Job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no message on redis channel")
	}
}
