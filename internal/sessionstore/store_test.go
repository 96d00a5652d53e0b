package sessionstore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/flemzord/tgflow/internal/config"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, "main"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing = %v, want ErrNotFound", err)
	}

	if err := s.Save(ctx, Entry{Name: "main", Session: []byte{1, 2, 3}, UserID: "99", Username: "me"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, Entry{Name: "backup", Session: []byte{9}}); err != nil {
		t.Fatalf("Save backup: %v", err)
	}
	if err := s.Save(ctx, Entry{Name: "main", Session: []byte{4, 5}, UserID: "99", Username: "me"}); err != nil {
		t.Fatalf("Save replace: %v", err)
	}

	got, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got.Session, []byte{4, 5}) || got.UserID != "99" || got.Username != "me" {
		t.Errorf("Load = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "backup" || list[1].Name != "main" {
		t.Errorf("List = %+v", list)
	}

	if err := s.Delete(ctx, "backup"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "backup"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	if err := s.Save(ctx, Entry{Name: "bad name!", Session: []byte{1}}); err == nil {
		t.Error("invalid name accepted")
	}
	if err := s.Save(ctx, Entry{Name: "empty"}); err == nil {
		t.Error("empty session accepted")
	}
}

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSQLite(t *testing.T) {
	t.Parallel()
	exerciseStore(t, openTestSQLite(t))
}

func TestSQLite_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, Entry{Name: "main", Session: []byte{7}}); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got, err := s.Load(ctx, "main"); err != nil || !bytes.Equal(got.Session, []byte{7}) {
		t.Errorf("Load after reopen = %+v, %v", got, err)
	}
}

func TestRedis(t *testing.T) {
	t.Parallel()

	s, mr := openTestRedis(t)
	exerciseStore(t, s)

	if !mr.Exists(redisKeyPrefix + "main") {
		t.Errorf("key %s missing", redisKeyPrefix+"main")
	}
	members, err := mr.Members(redisIndexKey)
	if err != nil || len(members) != 1 || members[0] != "main" {
		t.Errorf("index = %v, %v", members, err)
	}
}

func TestRedis_ListSkipsVanishedHash(t *testing.T) {
	t.Parallel()

	s, mr := openTestRedis(t)
	ctx := context.Background()
	if err := s.Save(ctx, Entry{Name: "gone", Session: []byte{1}}); err != nil {
		t.Fatal(err)
	}
	mr.Del(redisKeyPrefix + "gone")

	list, err := s.List(ctx)
	if err != nil || len(list) != 0 {
		t.Errorf("List = %+v, %v", list, err)
	}
}

func TestOpenRedis_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := OpenRedis(ctx, "redis://127.0.0.1:1/0"); err == nil {
		t.Fatal("expected ping error")
	}
	if _, err := OpenRedis(ctx, ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	tests := []struct {
		name    string
		cfg     config.StoreConfig
		sealed  bool
		wantErr bool
	}{
		{"sqlite", config.StoreConfig{Path: filepath.Join(t.TempDir(), "s.db")}, false, false},
		{"sealed redis", config.StoreConfig{Driver: config.StoreRedis, URL: "redis://" + mr.Addr(), Passphrase: "pw"}, true, false},
		{"unknown", config.StoreConfig{Driver: "etcd"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()
			if _, ok := s.(*Sealed); ok != tt.sealed {
				t.Errorf("sealed = %v, want %v", ok, tt.sealed)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"main", "acct-2", "work.alt_1"} {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", ".hidden", "a/b", "with space"} {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) accepted", name)
		}
	}
}
