package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pilot/internal/types"
)

func newTestBboltRepository(t *testing.T) Repository {
	t.Helper()
	repo, err := NewBboltRepository(filepath.Join(t.TempDir(), "pilot.db"))
	if err != nil {
		t.Fatalf("open bbolt: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestBboltMetaRoundTrip(t *testing.T) {
	repo := newTestBboltRepository(t)
	ctx := context.Background()

	created := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	meta := &types.ConversationMeta{ID: "conv_a", Title: "first", CreatedAt: created, UpdatedAt: created}
	if _, err := repo.Conversations().Upsert(ctx, meta); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := repo.Conversations().Get(ctx, "conv_a")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Title != "first" || !got.CreatedAt.Equal(created) {
		t.Fatalf("round trip changed meta: %+v", got)
	}

	// Upsert replaces in place.
	meta.Title = "renamed"
	meta.UpdatedAt = created.Add(time.Hour)
	if _, err := repo.Conversations().Upsert(ctx, meta); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	metas, err := repo.Conversations().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 1 || metas[0].Title != "renamed" {
		t.Fatalf("upsert duplicated or lost meta: %+v", metas)
	}
}

func TestBboltListOrdersByRecency(t *testing.T) {
	repo := newTestBboltRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"conv_a", "conv_b", "conv_c"} {
		meta := &types.ConversationMeta{ID: id, UpdatedAt: base.Add(time.Duration(i) * time.Minute)}
		if _, err := repo.Conversations().Upsert(ctx, meta); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	metas, err := repo.Conversations().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if metas[0].ID != "conv_c" || metas[2].ID != "conv_a" {
		t.Fatalf("unexpected order %+v", metas)
	}
}

func TestBboltMessagesRoundTrip(t *testing.T) {
	repo := newTestBboltRepository(t)
	ctx := context.Background()

	items := []types.ChatItem{
		{ID: "item-1", Kind: types.ItemUser, Content: "hello"},
		{ID: "item-2", Kind: types.ItemAssistant, Content: "hi there"},
	}
	if err := repo.Messages().Save(ctx, "conv_a", items); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := repo.Messages().Load(ctx, "conv_a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Content != "hi there" {
		t.Fatalf("round trip changed items: %+v", loaded)
	}

	missing, err := repo.Messages().Load(ctx, "conv_missing")
	if err != nil {
		t.Fatalf("missing load: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("missing conversation not empty: %+v", missing)
	}

	if err := repo.Messages().Delete(ctx, "conv_a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	loaded, err = repo.Messages().Load(ctx, "conv_a")
	if err != nil || len(loaded) != 0 {
		t.Fatalf("delete left items: %+v err=%v", loaded, err)
	}
}

func TestServiceOverBbolt(t *testing.T) {
	svc := newTestService(t, newTestBboltRepository(t), 10)
	ctx := context.Background()

	meta, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	items := []types.ChatItem{{Kind: types.ItemUser, Content: "persist me"}}
	if err := svc.SaveLog(ctx, meta.ID, items); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := svc.LoadLog(ctx, meta.ID)
	if err != nil || len(loaded) != 1 || loaded[0].Content != "persist me" {
		t.Fatalf("round trip failed: %+v err=%v", loaded, err)
	}
	metas, _ := svc.List(ctx)
	if len(metas) != 1 || metas[0].Title != "persist me" {
		t.Fatalf("meta not refreshed: %+v", metas)
	}
}
