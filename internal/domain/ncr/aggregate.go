package ncr

import (
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Category is the reconciliation bucket an NCR falls into.
type Category string

const (
	CategoryCredited Category = "credited"
	CategoryLoss     Category = "losses"
	CategoryPending  Category = "pending"
	CategoryOpen     Category = "open"
	// CategoryNone is RESOLVED with no financial impact; it never reaches reconciliation.
	CategoryNone Category = "none"
)

// Classify maps an NCR to its reconciliation bucket.
func Classify(n NCR) Category {
	switch n.Status {
	case StatusCredited:
		return CategoryCredited
	case StatusRejected:
		return CategoryLoss
	case StatusSent:
		return CategoryPending
	case StatusOpen:
		return CategoryOpen
	case StatusResolved:
		switch n.Impact() {
		case ImpactCredit:
			return CategoryCredited
		case ImpactLoss:
			return CategoryLoss
		}
	}
	return CategoryNone
}

// Bucket is a count and a value total.
type Bucket struct {
	Count int         `json:"count"`
	Total types.Money `json:"total"`
}

func (b *Bucket) add(v types.Money) {
	b.Count++
	b.Total = types.RoundMoney(b.Total.Add(v))
}

// Summary partitions the NCRs of one (period, location).
type Summary struct {
	Credited Bucket `json:"credited"`
	Losses   Bucket `json:"losses"`
	Pending  Bucket `json:"pending"`
	Open     Bucket `json:"open"`
}

// Aggregate sums ncrs into a Summary.
func Aggregate(ncrs []NCR) Summary {
	s := Summary{
		Credited: Bucket{Total: types.Zero()},
		Losses:   Bucket{Total: types.Zero()},
		Pending:  Bucket{Total: types.Zero()},
		Open:     Bucket{Total: types.Zero()},
	}
	for _, n := range ncrs {
		switch Classify(n) {
		case CategoryCredited:
			s.Credited.add(n.Value)
		case CategoryLoss:
			s.Losses.add(n.Value)
		case CategoryPending:
			s.Pending.add(n.Value)
		case CategoryOpen:
			s.Open.add(n.Value)
		}
	}
	return s
}

// LocationSummary is the open bucket of one location, used as a close warning.
type LocationSummary struct {
	LocationID id.ID       `json:"locationId"`
	Count      int         `json:"count"`
	Total      types.Money `json:"total"`
}

// OpenByLocation groups the OPEN NCRs by location, in first-seen order.
func OpenByLocation(ncrs []NCR) []LocationSummary {
	idx := make(map[id.ID]int)
	var out []LocationSummary
	for _, n := range ncrs {
		if n.Status != StatusOpen {
			continue
		}
		i, ok := idx[n.LocationID]
		if !ok {
			i = len(out)
			idx[n.LocationID] = i
			out = append(out, LocationSummary{LocationID: n.LocationID, Total: types.Zero()})
		}
		out[i].Count++
		out[i].Total = types.RoundMoney(out[i].Total.Add(n.Value))
	}
	return out
}
