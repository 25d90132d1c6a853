package redissvc

import (
	"context"
	"os"
	"testing"
)

func TestConnect(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb, err := Connect(context.Background(), addr)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	if err := rdb.Set(context.Background(), "redissvc:test", "ok", 0).Err(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	t.Cleanup(func() { rdb.Del(context.Background(), "redissvc:test") })
}

func TestConnectUnreachable(t *testing.T) {
	if _, err := Connect(context.Background(), "127.0.0.1:1"); err == nil {
		t.Fatal("expected an error for an unreachable address")
	}
}
