package stock

import (
	"context"
	"sync"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

type balanceKey struct{ location, item id.ID }

// Memory is an in-memory Repository. Tests only.
type Memory struct {
	mu        sync.Mutex
	Balances  map[balanceKey]Balance
	Movements []Movement
	// Locks records the item of every GetBalanceForUpdate call in order.
	Locks []id.ID
}

// NewMemory creates an empty ledger.
func NewMemory() *Memory {
	return &Memory{Balances: map[balanceKey]Balance{}}
}

// Seed sets a balance directly.
func (m *Memory) Seed(locationID, itemID id.ID, onHand types.Quantity, wac types.Money) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[balanceKey{locationID, itemID}] = Balance{LocationID: locationID, ItemID: itemID, OnHand: onHand, WAC: wac}
}

func (m *Memory) GetBalance(_ context.Context, locationID, itemID id.ID) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(locationID, itemID), nil
}

func (m *Memory) balance(locationID, itemID id.ID) Balance {
	if b, ok := m.Balances[balanceKey{locationID, itemID}]; ok {
		return b
	}
	return Balance{LocationID: locationID, ItemID: itemID, OnHand: types.Zero(), WAC: types.Zero()}
}

func (m *Memory) GetBalanceForUpdate(_ context.Context, locationID, itemID id.ID) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locks = append(m.Locks, itemID)
	return m.balance(locationID, itemID), nil
}

func (m *Memory) SaveBalance(_ context.Context, b Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[balanceKey{b.LocationID, b.ItemID}] = b
	return nil
}

func (m *Memory) GetBalancesByLocation(_ context.Context, locationID id.ID, excludeZero bool) ([]Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Balance
	for k, b := range m.Balances {
		if k.location != locationID || (excludeZero && b.OnHand.IsZero()) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *Memory) CreateMovements(_ context.Context, movements []Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Movements = append(m.Movements, movements...)
	return nil
}

func (m *Memory) GetMovementsByRecorder(_ context.Context, recorderID id.ID) ([]Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Movement
	for _, mv := range m.Movements {
		if mv.RecorderID == recorderID {
			out = append(out, mv)
		}
	}
	return out, nil
}

var _ Repository = (*Memory)(nil)
