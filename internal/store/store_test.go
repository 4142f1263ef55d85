package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/glebovdev/moodradio/internal/station"
)

func makeStation(n int) station.Station {
	return station.Station{
		ID:        fmt.Sprintf("id-%d", n),
		Name:      fmt.Sprintf("Station %d", n),
		StreamURL: fmt.Sprintf("https://s%d.example.com/stream.mp3", n),
	}
}

func ids(list []station.Station) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func TestBlacklistIdempotent(t *testing.T) {
	s := New(NewMemoryKV())

	if !s.Blacklist("X") {
		t.Error("first Blacklist(X) should report a new entry")
	}
	if s.Blacklist("X") {
		t.Error("second Blacklist(X) should be a no-op")
	}

	got := s.BlacklistIDs()
	if len(got) != 1 || got[0] != "X" {
		t.Errorf("BlacklistIDs() = %v, want [X]", got)
	}
	if !s.IsBlacklisted("X") {
		t.Error("IsBlacklisted(X) = false")
	}
}

func TestUnblacklistAndClear(t *testing.T) {
	s := New(NewMemoryKV())
	s.Blacklist("a")
	s.Blacklist("b")

	if !s.Unblacklist("a") {
		t.Error("Unblacklist(a) should report removal")
	}
	if s.Unblacklist("a") {
		t.Error("Unblacklist(a) twice should report nothing removed")
	}
	if s.IsBlacklisted("a") || !s.IsBlacklisted("b") {
		t.Errorf("BlacklistIDs() = %v, want [b]", s.BlacklistIDs())
	}

	s.ClearBlacklist()
	if len(s.BlacklistIDs()) != 0 {
		t.Errorf("BlacklistIDs() after clear = %v", s.BlacklistIDs())
	}
}

func TestFilterBlacklisted(t *testing.T) {
	s := New(NewMemoryKV())
	s.Blacklist("id-2")

	got := ids(s.FilterBlacklisted([]station.Station{makeStation(1), makeStation(2), makeStation(3)}))
	want := []string{"id-1", "id-3"}
	if !slices.Equal(got, want) {
		t.Errorf("FilterBlacklisted() = %v, want %v", got, want)
	}
}

func TestRecentPromotesAndCaps(t *testing.T) {
	s := New(NewMemoryKV())

	for i := 1; i <= 7; i++ {
		s.PutRecent("Lofi", makeStation(i))
	}
	s.PutRecent("lofi", makeStation(5))

	got := ids(s.Recent("LOFI"))
	want := []string{"id-5", "id-7", "id-6", "id-4", "id-3"}
	if !slices.Equal(got, want) {
		t.Errorf("Recent() = %v, want %v", got, want)
	}
}

func TestVerifiedPromoteAndRemove(t *testing.T) {
	s := New(NewMemoryKV())

	s.PutVerified("jazz", makeStation(1))
	s.PutVerified("jazz", makeStation(2))
	s.PutVerified("jazz", makeStation(1))

	got := ids(s.Verified("jazz"))
	if !slices.Equal(got, []string{"id-1", "id-2"}) {
		t.Errorf("Verified() = %v, want [id-1 id-2]", got)
	}

	s.RemoveVerified("jazz", makeStation(1).StreamURL)
	got = ids(s.Verified("jazz"))
	if !slices.Equal(got, []string{"id-2"}) {
		t.Errorf("Verified() after remove = %v, want [id-2]", got)
	}

	if len(s.Verified("metal")) != 0 {
		t.Error("verified tiers should be per genre")
	}
}

func TestRejectedCapped(t *testing.T) {
	s := New(NewMemoryKV())
	for i := 0; i < MaxRejected+5; i++ {
		s.PutRejected("phonk", makeStation(i))
	}
	if got := len(s.Rejected("phonk")); got != MaxRejected {
		t.Errorf("len(Rejected()) = %d, want %d", got, MaxRejected)
	}
}

func TestStopWordsMerge(t *testing.T) {
	s := New(NewMemoryKV())
	s.PutStopWords("phonk", []string{"News", "talk"})
	s.PutStopWords("phonk", []string{"talk", "  Sport "})

	got := s.StopWords("phonk")
	want := []string{"news", "talk", "sport"}
	if !slices.Equal(got, want) {
		t.Errorf("StopWords() = %v, want %v", got, want)
	}
}

func TestCorruptValueIsReset(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	kv.Set(ctx, "cache:lofi", []byte("{not json"))
	kv.Set(ctx, "verified:lofi", []byte(`[{"id":"a","stream_url":"http://insecure.example.com/a"}]`))

	s := New(kv)
	if got := s.Recent("lofi"); len(got) != 0 {
		t.Errorf("Recent() = %v, want empty for unparsable value", got)
	}
	if got := s.Verified("lofi"); len(got) != 0 {
		t.Errorf("Verified() = %v, want empty for invalid shape", got)
	}

	for _, key := range []string{"cache:lofi", "verified:lofi"} {
		if _, err := kv.Get(ctx, key); err != ErrNotFound {
			t.Errorf("key %s should be reset, Get() error = %v", key, err)
		}
	}

	s.PutRecent("lofi", makeStation(1))
	if got := ids(s.Recent("lofi")); !slices.Equal(got, []string{"id-1"}) {
		t.Errorf("Recent() after reset = %v", got)
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, fmt.Errorf("disk on fire") }
func (failingKV) Set(context.Context, string, []byte) error   { return fmt.Errorf("disk on fire") }
func (failingKV) Delete(context.Context, string) error        { return fmt.Errorf("disk on fire") }
func (failingKV) Close() error                                { return nil }

func TestBackendFailuresAreSwallowed(t *testing.T) {
	s := New(failingKV{})

	s.PutRecent("lofi", makeStation(1))
	s.PutVerified("lofi", makeStation(1))
	s.Blacklist("x")

	if len(s.Recent("lofi")) != 0 || s.IsBlacklisted("x") {
		t.Error("failing backend should read as empty")
	}
}

func TestFileKV(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV() error = %v", err)
	}
	ctx := context.Background()

	if _, err := kv.Get(ctx, "cache:lofi"); err != ErrNotFound {
		t.Errorf("Get() on missing key error = %v, want ErrNotFound", err)
	}

	if err := kv.Set(ctx, "cache:lofi", []byte(`[]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, err := kv.Get(ctx, "cache:lofi")
	if err != nil || string(data) != "[]" {
		t.Errorf("Get() = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}

	if err := kv.Delete(ctx, "cache:lofi"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := kv.Delete(ctx, "cache:lofi"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestStoreOverFileKVSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	kv, _ := NewFileKV(dir)
	New(kv).PutVerified("synthwave", makeStation(9))

	kv2, _ := NewFileKV(dir)
	got := ids(New(kv2).Verified("synthwave"))
	if !slices.Equal(got, []string{"id-9"}) {
		t.Errorf("Verified() after reopen = %v, want [id-9]", got)
	}
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteKV() error = %v", err)
	}
	defer kv.Close()

	s := New(kv)
	s.PutRecent("jazz", makeStation(1))
	s.PutRecent("jazz", makeStation(2))
	s.Blacklist("id-1")

	if got := ids(s.Recent("jazz")); !slices.Equal(got, []string{"id-2", "id-1"}) {
		t.Errorf("Recent() = %v", got)
	}
	if !s.IsBlacklisted("id-1") {
		t.Error("IsBlacklisted(id-1) = false")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := Open(ctx, Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := kv.(*MemoryKV); !ok {
		t.Errorf("Open(memory) = %T", kv)
	}

	kv, err = Open(ctx, Options{Backend: BackendRedis, RedisAddr: "127.0.0.1:1", Dir: dir})
	if err != nil {
		t.Fatalf("Open(redis unreachable) error = %v", err)
	}
	if _, ok := kv.(*FileKV); !ok {
		t.Errorf("Open(redis unreachable) = %T, want file fallback", kv)
	}

	if _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Error("Open(etcd) should fail")
	}
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("MOODRADIO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MOODRADIO_TEST_REDIS_ADDR not set")
	}

	kv, err := NewRedisKV(context.Background(), addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedisKV() error = %v", err)
	}
	defer kv.Close()

	s := New(kv)
	s.ClearBlacklist()
	s.Blacklist("redis-test")
	if !s.IsBlacklisted("redis-test") {
		t.Error("IsBlacklisted() = false")
	}
	s.ClearBlacklist()
}
