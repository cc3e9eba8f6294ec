package redis_session

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/orchestra/session"
)

func startRedis(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start redis: %v", err)
	}
	t.Cleanup(func() { _ = rc.Terminate(ctx) })
	port, err := rc.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := rc.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get host: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisSessionRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	addr := startRedis(t, ctx)

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	st := NewWithClient(client, 30*time.Minute)

	sess, err := st.GetOrCreate(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID == "" {
		t.Fatal("empty session id")
	}

	sess.RecordTurn("flights from BLR", "Which date?", &session.Pending{Tool: "search_flights", Missing: []string{"date"}}, time.Now())
	if err := st.Put(ctx, sess); err != nil {
		t.Fatal(err)
	}

	loaded, ok, err := st.Get(ctx, sess.ID)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.LastRequest != "flights from BLR" {
		t.Fatalf("last request = %q", loaded.LastRequest)
	}
	if loaded.Pending == nil || loaded.Pending.Tool != "search_flights" {
		t.Fatalf("pending = %+v", loaded.Pending)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("history = %+v", loaded.History)
	}

	if err := st.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := st.Get(ctx, sess.ID); ok {
		t.Fatal("session should be gone")
	}
}

func TestRedisSessionExpiresWithTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	addr := startRedis(t, ctx)

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	st := NewWithClient(client, time.Second)

	sess, err := st.GetOrCreate(ctx, "ephemeral")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Put(ctx, sess); err != nil {
		t.Fatal(err)
	}

	time.Sleep(1500 * time.Millisecond)
	if _, ok, _ := st.Get(ctx, "ephemeral"); ok {
		t.Fatal("session should have expired")
	}
}
