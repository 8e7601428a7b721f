package inventory

import (
	"time"

	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// MaxAllocationRetries is the most times a sale is replanned after losing
// a race for a batch.
const MaxAllocationRetries = 1

// Settings holds the ledger policy knobs shared by the services
type Settings struct {
	DocumentPrefix    string
	LotPrefix         string
	Location          *time.Location
	IdempotencyTTL    time.Duration
	AllocationRetries int
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		DocumentPrefix:    inventory.DefaultDocumentPrefix,
		LotPrefix:         inventory.DefaultLotPrefix,
		Location:          time.UTC,
		IdempotencyTTL:    24 * time.Hour,
		AllocationRetries: 1,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.DocumentPrefix == "" {
		s.DocumentPrefix = d.DocumentPrefix
	}
	if s.LotPrefix == "" {
		s.LotPrefix = d.LotPrefix
	}
	if s.Location == nil {
		s.Location = d.Location
	}
	if s.IdempotencyTTL <= 0 {
		s.IdempotencyTTL = d.IdempotencyTTL
	}
	if s.AllocationRetries < 0 {
		s.AllocationRetries = 0
	}
	if s.AllocationRetries > MaxAllocationRetries {
		s.AllocationRetries = MaxAllocationRetries
	}
	return s
}

// today returns the calendar day of now in the ledger's time zone
func (s Settings) today(clock shared.Clock) time.Time {
	return shared.DateOf(clock().In(s.Location))
}
