package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestKeyString はキー名にプレフィックスが付与されることを検証する。
func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{KeyPosts, "ethicheck:posts"},
		{KeyCompanies, "ethicheck:companies"},
		{KeyBoycotts, "ethicheck:boycotts"},
		{KeyBoycottStats, "ethicheck:boycott_stats"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("Key(%q).String() = %q, want %q", string(tt.key), got, tt.want)
		}
	}
}

// TestNopStore はNopStoreが常にキャッシュミスを返しエラーを返さないことを検証する。
func TestNopStore(t *testing.T) {
	ctx := context.Background()
	var s Store = NopStore{}

	if err := s.Set(ctx, KeyPosts, []byte("[]")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	value, ok, err := s.Get(ctx, KeyPosts)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok || value != nil {
		t.Errorf("Get = (%q, %v), want miss", value, ok)
	}
	if err := s.Invalidate(ctx, KeyPosts, KeyCompanies); err != nil {
		t.Errorf("Invalidate returned error: %v", err)
	}
}

// TestNewRedisStore_InvalidURL は不正なURLでエラーになることを検証する。
func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-redis-url", time.Minute)
	if err == nil {
		t.Fatal("expected error for invalid redis URL, got nil")
	}
}

// TestRedisStore_InvalidateNoKeys はキー指定なしのInvalidateがRedisに接続せず成功することを検証する。
func TestRedisStore_InvalidateNoKeys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	s := NewRedisStoreWithClient(client, time.Minute)
	if err := s.Invalidate(context.Background()); err != nil {
		t.Errorf("Invalidate() returned error: %v", err)
	}
}
