package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"spycats/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	meta := map[string]string{"mission": "m1"}
	info, err := s.Put(ctx, "dossiers/missions/m1/1.json", strings.NewReader(`{"a":1}`), core.PutOptions{ContentType: "application/json", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["mission"] = "mutated"
	if info.Size != 7 || info.ETag == "" || info.Metadata["mission"] != "m1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, info.Key, strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
	_, _ = s.Put(ctx, "dossiers/missions/m2/1.json", strings.NewReader("{}"), core.PutOptions{})
	_, _ = s.Put(ctx, "other/key", strings.NewReader("{}"), core.PutOptions{})

	list, err := s.List(ctx, "dossiers/")
	if err != nil || len(list) != 2 || list[0].Key != info.Key {
		t.Fatalf("unexpected list %+v %v", list, err)
	}

	got, rc, err := s.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"a":1}` || got.ContentType != "application/json" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}

	if ok, _ := s.Delete(ctx, info.Key); !ok {
		t.Fatalf("expected delete to report existing key")
	}
	if ok, _ := s.Delete(ctx, info.Key); ok {
		t.Fatalf("expected second delete to report missing key")
	}
	if _, _, err := s.Get(ctx, info.Key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver")
	}
}
