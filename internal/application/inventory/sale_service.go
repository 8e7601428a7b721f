package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	ledgerlog "github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SaleService records sales and allocates their stock FEFO
type SaleService struct {
	txScope     TransactionScope
	variants    catalog.VariantReader
	allocator   *FEFOAllocator
	locker      ProductLocker
	idempotency idempotencyGuard
	settings    Settings
	clock       shared.Clock
	logger      *zap.Logger
	metrics     *telemetry.LedgerMetrics
}

// NewSaleService creates a SaleService. A nil locker disables product locks.
func NewSaleService(
	txScope TransactionScope,
	variants catalog.VariantReader,
	allocator *FEFOAllocator,
	locker ProductLocker,
	idempotency shared.IdempotencyStore,
	settings Settings,
	clock shared.Clock,
	logger *zap.Logger,
) *SaleService {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	settings = settings.withDefaults()
	return &SaleService{
		txScope:     txScope,
		variants:    variants,
		allocator:   allocator,
		locker:      locker,
		idempotency: idempotencyGuard{store: idempotency, ttl: settings.IdempotencyTTL, logger: logger},
		settings:    settings,
		clock:       clock,
		logger:      logger,
	}
}

// SetMetrics sets the ledger metrics collector
func (s *SaleService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// resolvedSaleLine is a sale line with its variant checked
type resolvedSaleLine struct {
	productID    uuid.UUID
	variantID    uuid.UUID
	saleMode     string
	packSize     int64
	quantityPack int64
	unitPrice    decimal.Decimal
}

// CreateSale records a sale and allocates every line from the earliest
// expiring batches. Either the whole sale is allocated or nothing changes.
// A sale that loses a race for a batch is planned again up to the
// configured number of retries.
func (s *SaleService) CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "create",
		telemetry.WithAttribute(telemetry.SpanAttrWorkspaceID, req.WorkspaceID),
		telemetry.WithAttribute(telemetry.SpanAttrWarehouseID, req.WarehouseID),
		telemetry.WithAttribute(telemetry.SpanAttrLineCount, len(req.Lines)),
	)
	defer span.End()

	if err := validateRequest(&req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(req.Lines) == 0 {
		telemetry.RecordError(span, inventory.ErrEmptyDocument)
		return nil, inventory.ErrEmptyDocument
	}

	lines, err := s.resolveLines(ctx, req.WorkspaceID, req.Lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release, err := s.idempotency.claim(ctx, "sale", req.WorkspaceID, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	unlock := s.lockProducts(ctx, req.Scope(), lines)
	defer unlock()

	start := time.Now()
	attempts := 1 + s.settings.AllocationRetries
	var resp *SaleResponse
	for attempt := 1; ; attempt++ {
		resp, err = s.allocateOnce(ctx, &req, lines)
		if err == nil || !errors.Is(err, inventory.ErrConcurrentAllocationConflict) {
			break
		}
		s.metrics.RecordAllocationConflict(ctx, req.WorkspaceID, req.WarehouseID)
		if attempt >= attempts {
			break
		}
		s.metrics.RecordAllocationRetry(ctx, req.WorkspaceID, req.WarehouseID)
		s.logger.Info("Allocation conflict, replanning sale",
			ledgerlog.UUID(ledgerlog.FieldWorkspaceID, req.WorkspaceID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		telemetry.AddEvent(span, "allocation_retry", telemetry.SpanAttrAttempt, attempt)
	}
	s.metrics.RecordAllocationDuration(ctx, time.Since(start), allocationOutcome(err))

	if err != nil {
		release()
		telemetry.RecordError(span, err)
		return nil, err
	}

	var units int64
	for _, l := range resp.Lines {
		units += l.RequiredUnits
	}
	s.metrics.RecordSaleCreated(ctx, req.WorkspaceID, req.WarehouseID, units)
	s.logger.Info("Sale created",
		ledgerlog.Sale(resp.ID),
		zap.Int("lines", len(resp.Lines)),
		zap.Int64("base_units", units),
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, resp.ID,
		telemetry.SpanAttrQuantity, units,
	)
	telemetry.SetOK(span)
	return resp, nil
}

// allocateOnce builds the sale and runs plan and apply in one transaction
func (s *SaleService) allocateOnce(ctx context.Context, req *CreateSaleRequest, lines []resolvedSaleLine) (*SaleResponse, error) {
	now := s.clock()
	sale, err := s.buildSale(req, lines, now)
	if err != nil {
		return nil, err
	}

	reqs := make([]LineRequirement, len(sale.Lines))
	for i := range sale.Lines {
		reqs[i] = LineRequirement{
			LineIndex: i,
			ProductID: sale.Lines[i].ProductID,
			Units:     sale.Lines[i].RequiredUnits(),
		}
	}
	day := s.settings.today(s.clock)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		plan, err := s.allocator.Plan(ctx, repos.BatchRepo(), sale.Scope(), day, reqs)
		if err != nil {
			return err
		}
		movements, err := s.allocator.ApplyPlan(ctx, repos, sale, plan)
		if err != nil {
			return err
		}
		if err := repos.SaleRepo().Create(ctx, sale); err != nil {
			return fmt.Errorf("failed to save sale: %w", err)
		}
		if err := repos.MovementRepo().Append(ctx, movements...); err != nil {
			return fmt.Errorf("failed to append movements: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToSaleResponse(sale)
	return &resp, nil
}

// buildSale creates a fresh sale aggregate for one allocation attempt
func (s *SaleService) buildSale(req *CreateSaleRequest, lines []resolvedSaleLine, now time.Time) (*inventory.Sale, error) {
	saleDate := now
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}
	sale, err := inventory.NewSale(req.Scope(), saleDate, inventory.ChannelSnapshot{
		ChannelID:          req.Channel.ChannelID,
		Name:               req.Channel.Name,
		CommissionPercent:  req.Channel.CommissionPercent,
		TransactionPercent: req.Channel.TransactionPercent,
	}, now)
	if err != nil {
		return nil, err
	}
	sale.CustomerName = req.CustomerName
	sale.Province = req.Province
	sale.Note = req.Note

	for _, l := range lines {
		if _, err := sale.AddLine(l.productID, l.variantID, l.saleMode, l.packSize, l.quantityPack, l.unitPrice); err != nil {
			return nil, err
		}
	}

	t := req.Totals
	sale.Totals.ShippingFee = t.ShippingFee
	sale.Totals.Discount = t.Discount
	sale.Totals.CommissionFee = t.CommissionFee
	sale.Totals.TransactionFee = t.TransactionFee
	sale.Totals.VATAmount = t.VATAmount
	sale.Totals.CustomerPay = t.CustomerPay
	sale.Totals.SellerReceive = t.SellerReceive
	return sale, nil
}

// resolveLines checks every line's variant: it must belong to the line's
// product and still be active. Pack size defaults to the variant's.
func (s *SaleService) resolveLines(ctx context.Context, workspaceID uuid.UUID, reqs []SaleLineRequest) ([]resolvedSaleLine, error) {
	lines := make([]resolvedSaleLine, len(reqs))
	for i, r := range reqs {
		variant, err := s.variants.FindVariant(ctx, workspaceID, r.VariantID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if !variant.BelongsTo(r.ProductID) {
			return nil, fmt.Errorf("line %d: %w", i+1, catalog.ErrVariantWrongProduct)
		}
		if !variant.IsActive() {
			return nil, fmt.Errorf("line %d: %w", i+1, catalog.ErrVariantRetired)
		}

		packSize := variant.PackSize
		if r.PackSize != nil {
			packSize = *r.PackSize
		}
		if packSize <= 0 {
			return nil, &inventory.InvalidQuantityError{Field: fmt.Sprintf("line %d pack size", i+1), Value: packSize}
		}
		if r.QuantityPack <= 0 {
			return nil, &inventory.InvalidQuantityError{Field: fmt.Sprintf("line %d quantity", i+1), Value: r.QuantityPack}
		}
		if err := checkPackUnits(i+1, packSize, r.QuantityPack); err != nil {
			return nil, err
		}
		lines[i] = resolvedSaleLine{
			productID:    r.ProductID,
			variantID:    variant.ID,
			saleMode:     variant.SaleMode,
			packSize:     packSize,
			quantityPack: r.QuantityPack,
			unitPrice:    r.UnitPrice,
		}
	}
	return lines, nil
}

// lockProducts takes the product locks of a sale. A lock that cannot be
// taken is logged and skipped; row locks still guard the batches.
func (s *SaleService) lockProducts(ctx context.Context, scope shared.Scope, lines []resolvedSaleLine) func() {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.productID
	}

	var unlocks []func()
	for _, key := range productLockKeys(scope, ids) {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to take product lock",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		unlocks = append(unlocks, unlock)
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// GetSale returns a sale with its allocations
func (s *SaleService) GetSale(ctx context.Context, workspaceID, saleID uuid.UUID) (*SaleResponse, error) {
	var resp SaleResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := findSale(ctx, repos.SaleRepo(), workspaceID, saleID)
		if err != nil {
			return err
		}
		resp = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSalesByProduct lists the sales with a line of the product, newest first
// by default
func (s *SaleService) ListSalesByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID, filter SaleListFilter) ([]SaleResponse, error) {
	if err := validateRequest(&filter); err != nil {
		return nil, err
	}
	var out []SaleResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sales, err := repos.SaleRepo().FindByProduct(ctx, scope, productID, shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		})
		if err != nil {
			return err
		}
		out = make([]SaleResponse, len(sales))
		for i := range sales {
			out[i] = ToSaleResponse(&sales[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// findSale loads a sale and hides sales of other workspaces
func findSale(ctx context.Context, repo inventory.SaleRepository, workspaceID, saleID uuid.UUID) (*inventory.Sale, error) {
	sale, err := repo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("%w: %w", inventory.ErrSaleNotFound, shared.ErrNotFound)
	}
	return sale, nil
}

func allocationOutcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, inventory.ErrInsufficientStock):
		return telemetry.OutcomeShort
	case errors.Is(err, inventory.ErrConcurrentAllocationConflict):
		return telemetry.OutcomeConflict
	default:
		return telemetry.OutcomeError
	}
}
