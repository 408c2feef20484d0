package ncr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestNCR(status Status) *NCR {
	return &NCR{
		BaseEntity: entity.NewBaseEntity(testNow),
		Number:     "NCR-2025-001",
		Type:       TypeManual,
		LocationID: id.New(),
		Reason:     "damaged packaging",
		Value:      types.MustParse("50.00"),
		Status:     status,
	}
}

func TestTransition_Allowed(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
	}{
		{"open to sent", StatusOpen, StatusSent},
		{"sent to credited", StatusSent, StatusCredited},
		{"sent to rejected", StatusSent, StatusRejected},
		{"open to credited without sending", StatusOpen, StatusCredited},
		{"rejected back to open", StatusRejected, StatusOpen},
		{"credited to rejected", StatusCredited, StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNCR(tt.from)
			version := n.Version

			err := n.Transition(StatusChange{To: tt.to}, testNow.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, tt.to, n.Status)
			assert.Equal(t, version+1, n.Version)
			assert.Nil(t, n.FinancialImpact)
			assert.Nil(t, n.ResolutionType)
		})
	}
}

func TestTransition_Resolve(t *testing.T) {
	for _, from := range []Status{StatusOpen, StatusSent, StatusCredited, StatusRejected} {
		t.Run(string(from), func(t *testing.T) {
			n := newTestNCR(from)

			err := n.Transition(StatusChange{
				To:              StatusResolved,
				ResolutionType:  "  write-off ",
				FinancialImpact: ImpactLoss,
			}, testNow)
			require.NoError(t, err)

			assert.Equal(t, StatusResolved, n.Status)
			require.NotNil(t, n.ResolutionType)
			assert.Equal(t, "write-off", *n.ResolutionType)
			assert.Equal(t, ImpactLoss, n.Impact())
			require.NotNil(t, n.ResolvedAt)
			assert.NoError(t, n.Validate(t.Context()))
		})
	}
}

func TestTransition_ResolveRequiresFields(t *testing.T) {
	tests := []struct {
		name   string
		change StatusChange
		field  string
	}{
		{"missing resolution type", StatusChange{To: StatusResolved, FinancialImpact: ImpactNone}, "resolutionType"},
		{"blank resolution type", StatusChange{To: StatusResolved, ResolutionType: "   ", FinancialImpact: ImpactNone}, "resolutionType"},
		{"missing impact", StatusChange{To: StatusResolved, ResolutionType: "credit note"}, "financialImpact"},
		{"unknown impact", StatusChange{To: StatusResolved, ResolutionType: "credit note", FinancialImpact: "PARTIAL"}, "financialImpact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNCR(StatusSent)

			err := n.Transition(tt.change, testNow)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field())
			assert.Equal(t, StatusSent, n.Status)
		})
	}
}

func TestTransition_ResolutionFieldsForbiddenOutsideResolved(t *testing.T) {
	n := newTestNCR(StatusOpen)

	err := n.Transition(StatusChange{To: StatusSent, FinancialImpact: ImpactCredit}, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Equal(t, StatusOpen, n.Status)

	err = n.Transition(StatusChange{To: StatusCredited, ResolutionType: "credit note"}, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestTransition_ResolvedIsFinal(t *testing.T) {
	n := newTestNCR(StatusOpen)
	require.NoError(t, n.Transition(StatusChange{
		To: StatusResolved, ResolutionType: "accepted", FinancialImpact: ImpactNone,
	}, testNow))

	for _, to := range []Status{StatusOpen, StatusSent, StatusCredited, StatusRejected, StatusResolved} {
		err := n.Transition(StatusChange{To: to}, testNow)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition), "to %s", to)
	}
	assert.Equal(t, StatusResolved, n.Status)
	assert.Equal(t, ImpactNone, n.Impact())
}

func TestTransition_RejectsUnknownAndSameStatus(t *testing.T) {
	n := newTestNCR(StatusOpen)

	err := n.Transition(StatusChange{To: "CLOSED"}, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	err = n.Transition(StatusChange{To: StatusOpen}, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestValidate(t *testing.T) {
	impact := ImpactCredit
	resolution := "credit note"

	tests := []struct {
		name   string
		mutate func(n *NCR)
		field  string
		ok     bool
	}{
		{"valid", func(n *NCR) {}, "", true},
		{"negative value", func(n *NCR) { n.Value = types.MustParse("-1") }, "value", false},
		{"no location", func(n *NCR) { n.LocationID = id.ID{} }, "locationId", false},
		{"no reason", func(n *NCR) { n.Reason = " " }, "reason", false},
		{"variance without delivery", func(n *NCR) { n.Type = TypePriceVariance }, "deliveryId", false},
		{"impact while open", func(n *NCR) { n.FinancialImpact = &impact }, "", false},
		{"resolved without impact", func(n *NCR) {
			n.Status = StatusResolved
			n.ResolutionType = &resolution
		}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNCR(StatusOpen)
			tt.mutate(n)

			err := n.Validate(t.Context())
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field())
		})
	}
}
