package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := ConnectRedis(ctx, mr.Addr(), "", 0)
	if err != nil || rdb == nil {
		t.Fatalf("ConnectRedis: rdb=%v err=%v", rdb, err)
	}
	defer func() { _ = rdb.Close() }()

	type doc struct {
		N int `json:"n"`
	}
	if err := RedisSetJSON(ctx, rdb, "k", doc{N: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got doc
	if ok, err := RedisGetJSON(ctx, rdb, "k", &got); !ok || err != nil || got.N != 3 {
		t.Fatalf("get: ok=%v err=%v got=%+v", ok, err, got)
	}
	if ok, err := RedisGetJSON(ctx, rdb, "missing", &got); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
}

func TestConnectRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb, err := ConnectRedis(context.Background(), addr, "", 0)
	if err == nil || rdb != nil {
		t.Fatalf("expected nil client and error, got rdb=%v err=%v", rdb, err)
	}
}
