package settings_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/pai-tutor/internal/settings"
)

// startRedis runs a disposable Redis container, skipping the test when
// Docker is not available.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("Host() error = %v", err)
	}
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("MappedPort() error = %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	if got := settings.NewRedisStore(client, "").Key(); got != "tutor:settings:default" {
		t.Errorf("Key() = %q", got)
	}
	if got := settings.NewRedisStore(client, "lab").Key(); got != "tutor:settings:lab" {
		t.Errorf("Key() = %q", got)
	}
}

func TestRedisStore_UnreachableUsesDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:59998", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	store := settings.NewRedisStore(client, "default")
	if got := store.Load(context.Background()); got != settings.Default() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
	if err := store.Save(context.Background(), settings.Settings{DarkMode: true}); err == nil {
		t.Error("Save() should fail when redis is unreachable")
	}
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	client := startRedis(t)
	ctx := t.Context()
	store := settings.NewRedisStore(client, "classroom")

	if got := store.Load(ctx); got != settings.Default() {
		t.Errorf("Load() on empty hash = %+v, want defaults", got)
	}

	if err := store.Save(ctx, settings.Settings{DarkMode: true}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.Load(ctx); !got.DarkMode {
		t.Errorf("Load() = %+v, want dark mode", got)
	}

	if err := client.HSet(ctx, store.Key(), "dark_mode", "maybe").Err(); err != nil {
		t.Fatalf("HSet() error = %v", err)
	}
	if got := store.Load(ctx); got != settings.Default() {
		t.Errorf("Load() with malformed field = %+v, want defaults", got)
	}
}
