// Package catalog holds the read side of items and locations.
// Catalog maintenance happens elsewhere; the ledger only resolves references.
package catalog

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// LocationType classifies a location.
type LocationType string

const (
	LocationKitchen   LocationType = "KITCHEN"
	LocationStore     LocationType = "STORE"
	LocationWarehouse LocationType = "WAREHOUSE"
)

// Item is a stock-keeping item.
type Item struct {
	ID            id.ID  `db:"id" json:"id"`
	Code          string `db:"code" json:"code"`
	Name          string `db:"name" json:"name"`
	UnitOfMeasure string `db:"unit_of_measure" json:"unitOfMeasure"`
	Category      string `db:"category" json:"category,omitempty"`
	Active        bool   `db:"active" json:"active"`
}

// Label renders "Name (Code)" for messages.
func (i *Item) Label() string {
	if i.Code == "" {
		return i.Name
	}
	return i.Name + " (" + i.Code + ")"
}

// RequireActive rejects deactivated items.
func (i *Item) RequireActive() error {
	if !i.Active {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "Item is deactivated").
			WithDetail("item_id", i.ID.String()).
			WithDetail("code", i.Code)
	}
	return nil
}

// Location is a stock-holding location.
type Location struct {
	ID   id.ID        `db:"id" json:"id"`
	Code string       `db:"code" json:"code"`
	Name string       `db:"name" json:"name"`
	Type LocationType `db:"type" json:"type"`
}

// Repository resolves catalog references. Missing rows are apperror NotFound.
type Repository interface {
	GetItem(ctx context.Context, itemID id.ID) (*Item, error)
	GetItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]*Item, error)
	GetLocation(ctx context.Context, locationID id.ID) (*Location, error)
	GetLocations(ctx context.Context, locationIDs []id.ID) (map[id.ID]*Location, error)
}

// Memory is an in-memory Repository. Tests only.
type Memory struct {
	Items     map[id.ID]*Item
	Locations map[id.ID]*Location
}

// NewMemory creates an empty Memory catalog.
func NewMemory() *Memory {
	return &Memory{Items: map[id.ID]*Item{}, Locations: map[id.ID]*Location{}}
}

// AddItem registers an active item and returns it.
func (m *Memory) AddItem(code, name, unit string) *Item {
	it := &Item{ID: id.New(), Code: code, Name: name, UnitOfMeasure: unit, Active: true}
	m.Items[it.ID] = it
	return it
}

// AddLocation registers a location and returns it.
func (m *Memory) AddLocation(code, name string, typ LocationType) *Location {
	loc := &Location{ID: id.New(), Code: code, Name: name, Type: typ}
	m.Locations[loc.ID] = loc
	return loc
}

func (m *Memory) GetItem(_ context.Context, itemID id.ID) (*Item, error) {
	if it, ok := m.Items[itemID]; ok {
		return it, nil
	}
	return nil, apperror.NewNotFound("Item", itemID)
}

func (m *Memory) GetItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]*Item, error) {
	out := make(map[id.ID]*Item, len(itemIDs))
	for _, itemID := range itemIDs {
		it, err := m.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		out[itemID] = it
	}
	return out, nil
}

func (m *Memory) GetLocation(_ context.Context, locationID id.ID) (*Location, error) {
	if loc, ok := m.Locations[locationID]; ok {
		return loc, nil
	}
	return nil, apperror.NewNotFound("Location", locationID)
}

func (m *Memory) GetLocations(ctx context.Context, locationIDs []id.ID) (map[id.ID]*Location, error) {
	out := make(map[id.ID]*Location, len(locationIDs))
	for _, locationID := range locationIDs {
		loc, err := m.GetLocation(ctx, locationID)
		if err != nil {
			return nil, err
		}
		out[locationID] = loc
	}
	return out, nil
}

var _ Repository = (*Memory)(nil)
