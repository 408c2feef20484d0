package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/costing"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/domain/variance"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/delivery")

// Periods checks the posting period and supplies locked prices.
type Periods interface {
	ForPosting(ctx context.Context, periodID id.ID, date time.Time) (*period.Period, error)
	LockedPrice(ctx context.Context, periodID, itemID id.ID) (*period.ItemPrice, error)
}

// Ledger receives stock into the ledger.
type Ledger interface {
	Receive(ctx context.Context, src stock.Source, locationID, itemID id.ID, qty types.Quantity, unitCost types.Money) (costing.Receipt, error)
}

// NCRs raises NCRs for price variances.
type NCRs interface {
	CreateForVariance(ctx context.Context, in ncr.VarianceInput) (*ncr.NCR, error)
}

// Dependencies wires a Service.
type Dependencies struct {
	Repo      Repository
	Periods   Periods
	Ledger    Ledger
	NCRs      NCRs
	Catalog   catalog.Repository
	Numerator numerator.Generator
	TxManager tx.Manager
	Publisher events.Publisher
	// Variance is the NCR trigger policy; nil means any variance triggers.
	Variance *variance.Config
}

// Service provides business operations for deliveries.
type Service struct {
	deps Dependencies
	now  func() time.Time
}

// NewService creates a new delivery service.
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps, now: time.Now}
}

// LineVariance is the variance check outcome of one line.
type LineVariance struct {
	LineNo int             `json:"lineNo"`
	ItemID id.ID           `json:"itemId"`
	Result variance.Result `json:"result"`
	NCRNo  string          `json:"ncrNo,omitempty"`
}

// PostResult is a posted delivery with everything the posting produced.
type PostResult struct {
	Delivery  *Delivery      `json:"delivery"`
	Variances []LineVariance `json:"variances"`
	NCRs      []*ncr.NCR     `json:"ncrs"`
}

// Post numbers, persists and posts a new delivery in one transaction:
// every line is received into the ledger through the WAC engine and checked
// against the locked period price, raising an NCR when the variance policy triggers.
// Either everything is stored, or nothing is.
func (s *Service) Post(ctx context.Context, doc *Delivery) (*PostResult, error) {
	ctx, span := tracer.Start(ctx, "delivery.Post")
	defer span.End()

	if err := doc.CanPost(); err != nil {
		return nil, err
	}
	doc.recalculateTotals()
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	location, err := s.deps.Catalog.GetLocation(ctx, doc.LocationID)
	if err != nil {
		return nil, err
	}
	items, err := s.deps.Catalog.GetItems(ctx, doc.ItemIDs())
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := it.RequireActive(); err != nil {
			return nil, err
		}
	}

	res := &PostResult{Delivery: doc}
	err = s.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.deps.Periods.ForPosting(ctx, doc.PeriodID, doc.Date); err != nil {
			return err
		}

		if doc.Number == "" {
			number, err := s.deps.Numerator.GetNextNumber(ctx, NumberConfig(), doc.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.Number = number
		}
		span.SetAttributes(attribute.String("delivery.number", doc.Number))

		for i := range doc.Lines {
			price, err := s.deps.Periods.LockedPrice(ctx, doc.PeriodID, doc.Lines[i].ItemID)
			if err != nil {
				return fmt.Errorf("get locked price: %w", err)
			}
			if price != nil {
				doc.Lines[i].PeriodPrice = decimal.NewNullDecimal(price.Price)
			}
		}

		doc.CreatedBy = appctx.GetUserID(ctx)
		doc.MarkPosted(s.now())
		if err := s.deps.Repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create delivery: %w", err)
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]
			receipt, err := s.deps.Ledger.Receive(ctx,
				stock.Source{RecorderID: doc.ID, RecorderType: RecorderType, LineID: line.LineID},
				doc.LocationID, line.ItemID, line.Quantity, line.UnitPrice)
			if err != nil {
				return err
			}
			line.WACAfter = receipt.NewWAC

			lv, created, err := s.checkVariance(ctx, doc, line, items[line.ItemID], location)
			if err != nil {
				return err
			}
			if lv != nil {
				res.Variances = append(res.Variances, *lv)
			}
			if created != nil {
				res.NCRs = append(res.NCRs, created)
			}
		}

		if err := s.deps.Repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		return s.publishPosted(ctx, doc, res.NCRs)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery posted",
		"id", doc.ID,
		"number", doc.Number,
		"lines", len(doc.Lines),
		"total", doc.TotalValue.String(),
		"ncrs", len(res.NCRs))
	return res, nil
}

func (s *Service) checkVariance(ctx context.Context, doc *Delivery, line *Line, item *catalog.Item, location *catalog.Location) (*LineVariance, *ncr.NCR, error) {
	if !line.PeriodPrice.Valid {
		logger.Warn(ctx, "no locked price, variance check skipped",
			"delivery", doc.Number,
			"line_no", line.LineNo,
			"item_id", line.ItemID)
		return nil, nil, nil
	}

	result, err := variance.CheckPriceVariance(line.UnitPrice, line.PeriodPrice.Decimal, line.Quantity, s.deps.Variance)
	if err != nil {
		return nil, nil, err
	}
	lv := &LineVariance{LineNo: line.LineNo, ItemID: line.ItemID, Result: result}
	if !result.ExceedsThreshold {
		return lv, nil, nil
	}

	reason := variance.Reason(variance.LineContext{
		ItemCode:      item.Code,
		ItemName:      item.Name,
		UnitOfMeasure: item.UnitOfMeasure,
		Quantity:      line.Quantity,
		PeriodPrice:   line.PeriodPrice.Decimal,
		UnitPrice:     line.UnitPrice,
	}, result)

	created, err := s.deps.NCRs.CreateForVariance(ctx, ncr.VarianceInput{
		LocationID:     doc.LocationID,
		LocationName:   location.Name,
		DeliveryID:     doc.ID,
		DeliveryNumber: doc.Number,
		DeliveryLineID: line.LineID,
		ItemID:         line.ItemID,
		ItemName:       item.Name,
		Reason:         reason,
		VarianceAmount: result.VarianceAmount,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create variance ncr: %w", err)
	}
	lv.NCRNo = created.Number
	return lv, created, nil
}

func (s *Service) publishPosted(ctx context.Context, doc *Delivery, created []*ncr.NCR) error {
	if s.deps.Publisher == nil {
		return nil
	}
	numbers := make([]string, 0, len(created))
	for _, n := range created {
		numbers = append(numbers, n.Number)
	}
	return s.deps.Publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregateDelivery,
		AggregateID:   doc.ID,
		Type:          events.TypeDeliveryPosted,
		Payload: events.DeliveryPosted{
			DeliveryID:     doc.ID,
			DeliveryNumber: doc.Number,
			PeriodID:       doc.PeriodID,
			LocationID:     doc.LocationID,
			TotalValue:     doc.TotalValue,
			LineCount:      len(doc.Lines),
			NCRNumbers:     numbers,
		},
	})
}

// GetByID retrieves a delivery with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Delivery, error) {
	doc, err := s.deps.Repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.deps.Repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}
