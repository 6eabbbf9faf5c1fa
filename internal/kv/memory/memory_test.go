package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/kv"
)

func TestLoadMissingKey(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), "nope")
	if !errors.Is(err, kv.ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Save(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("unexpected payload %s", got)
	}

	// The store holds its own copies; caller buffers are not aliased.
	got[0] = 'X'
	again, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if string(again) != `{"a":1}` {
		t.Fatalf("store payload was aliased: %s", again)
	}
}

func TestNewSeededProvidesCatalog(t *testing.T) {
	s := NewSeeded()
	payload, err := s.Load(context.Background(), kv.KeyInventory)
	if err != nil {
		t.Fatalf("load inventory: %v", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		t.Fatalf("unmarshal seed catalog: %v", err)
	}
	if len(products) == 0 {
		t.Fatalf("expected a non-empty seed catalog")
	}
	for _, p := range products {
		if p.ID == "" || p.PriceCents < 1 || p.Stock < 1 || len(p.Categories) == 0 {
			t.Fatalf("invalid seed product %+v", p)
		}
	}
}
