package memory

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/kv"
)

type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// NewSeeded returns a store preloaded with a small demo catalog so the
// backend is usable out of the box without redis or postgres.
func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "PRD-MIE-01", Title: "Mie Goreng Instan", PriceCents: 3500, PurchasePriceCents: 2700, Stock: 120, Categories: []string{"grocery"}},
		{ID: "PRD-TELUR-01", Title: "Telur 10 Butir", PriceCents: 26500, PurchasePriceCents: 23000, Stock: 80, Categories: []string{"grocery", "fresh"}},
		{ID: "PRD-SUSU-01", Title: "Susu UHT 1L", PriceCents: 18900, PurchasePriceCents: 13600, Stock: 60, Categories: []string{"dairy"}},
		{ID: "PRD-KOPI-01", Title: "Kopi Sachet", PriceCents: 2600, PurchasePriceCents: 1700, Stock: 200, Categories: []string{"beverage"}},
		{ID: "PRD-ROTI-01", Title: "Roti Tawar", PriceCents: 17800, PurchasePriceCents: 12400, Stock: 40, Categories: []string{"bakery"}},
		{ID: "PRD-SABUN-01", Title: "Sabun Mandi", PriceCents: 7400, PurchasePriceCents: 5000, Stock: 90, Categories: []string{"household"}},
	}

	payload, err := json.Marshal(products)
	if err != nil {
		log.Fatalf("[memory-kv] failed to marshal seed catalog: %v", err)
	}

	s := New()
	s.values[kv.KeyInventory] = payload
	return s
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, kv.ErrNoKey
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	s.values[key] = copied
	return nil
}
