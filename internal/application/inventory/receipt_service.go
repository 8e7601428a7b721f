package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	ledgerlog "github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReceiptService turns stock-in documents into batches and IN movements
type ReceiptService struct {
	txScope     TransactionScope
	variants    catalog.VariantReader
	idempotency idempotencyGuard
	settings    Settings
	clock       shared.Clock
	logger      *zap.Logger
	metrics     *telemetry.LedgerMetrics
}

// NewReceiptService creates a ReceiptService
func NewReceiptService(
	txScope TransactionScope,
	variants catalog.VariantReader,
	idempotency shared.IdempotencyStore,
	settings Settings,
	clock shared.Clock,
	logger *zap.Logger,
) *ReceiptService {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	settings = settings.withDefaults()
	return &ReceiptService{
		txScope:     txScope,
		variants:    variants,
		idempotency: idempotencyGuard{store: idempotency, ttl: settings.IdempotencyTTL, logger: logger},
		settings:    settings,
		clock:       clock,
		logger:      logger,
	}
}

// SetMetrics sets the ledger metrics collector
func (s *ReceiptService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// resolvedLine is a receipt line with its pack size settled
type resolvedLine struct {
	variantID      *uuid.UUID
	customSaleMode string
	customPackSize int64
	packSize       int64
	quantity       int64
	lot            string
}

// CreateReceipt records a stock-in document. All lines are processed in one
// transaction: each line increments the batch of its (lot, expiry) key and
// exactly one IN movement is written per touched batch. A generated document
// number that collides with a concurrent receipt is regenerated once.
func (s *ReceiptService) CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "create",
		telemetry.WithAttribute(telemetry.SpanAttrWorkspaceID, req.WorkspaceID),
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID),
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

	lines, err := s.resolveLines(ctx, req.WorkspaceID, req.ProductID, req.Lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release, err := s.idempotency.claim(ctx, "receipt", req.WorkspaceID, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	autoNumber := strings.TrimSpace(req.DocumentNumber) == ""
	var resp *ReceiptResponse
	for attempt := 0; ; attempt++ {
		resp, err = s.createOnce(ctx, &req, lines)
		if err == nil || !autoNumber || attempt > 0 || !errors.Is(err, inventory.ErrDuplicateDocumentNumber) {
			break
		}
		s.logger.Warn("Generated document number collided, retrying",
			ledgerlog.UUID(ledgerlog.FieldWorkspaceID, req.WorkspaceID),
		)
	}
	if err != nil {
		release()
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordReceiptCreated(ctx, req.WorkspaceID, req.WarehouseID, resp.TotalBaseUnitsReceived)
	s.logger.Info("Receipt created",
		ledgerlog.UUID(ledgerlog.FieldReceiptID, resp.ID),
		zap.String(ledgerlog.FieldDocumentNumber, resp.DocumentNumber),
		zap.Int("batches", len(resp.Batches)),
		zap.Int64("base_units", resp.TotalBaseUnitsReceived),
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceiptID, resp.ID,
		telemetry.SpanAttrDocumentNumber, resp.DocumentNumber,
		telemetry.SpanAttrQuantity, resp.TotalBaseUnitsReceived,
	)
	telemetry.SetOK(span)
	return resp, nil
}

// createOnce runs one receipt transaction
func (s *ReceiptService) createOnce(ctx context.Context, req *CreateReceiptRequest, lines []resolvedLine) (*ReceiptResponse, error) {
	scope := req.Scope()
	now := s.clock()
	today := s.settings.today(s.clock)

	var resp ReceiptResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		documentNumber, err := s.documentNumber(ctx, repos.ReceiptRepo(), req, today)
		if err != nil {
			return err
		}

		receivedAt := now
		if req.ReceivedAt != nil {
			receivedAt = *req.ReceivedAt
		}
		receipt, err := inventory.NewReceipt(scope, req.ProductID, documentNumber, req.ExpiryDate, receivedAt, now)
		if err != nil {
			return err
		}
		receipt.LotNumber = strings.TrimSpace(req.LotNumber)
		receipt.Note = req.Note
		receipt.AttachmentRef = req.AttachmentRef

		lineLots := make([]string, len(lines))
		for i, l := range lines {
			lineLots[i] = l.lot
		}
		lots, err := inventory.ResolveLots(receipt.LotNumber, lineLots, inventory.DefaultLot(s.settings.LotPrefix, documentNumber))
		if err != nil {
			return err
		}

		for i, l := range lines {
			if err := receipt.AddLine(inventory.ReceiptLine{
				VariantID:      l.variantID,
				CustomSaleMode: l.customSaleMode,
				CustomPackSize: l.customPackSize,
				PackSize:       l.packSize,
				Quantity:       l.quantity,
				LotNumber:      lots[i],
			}); err != nil {
				return err
			}
		}

		if err := repos.ReceiptRepo().Create(ctx, receipt); err != nil {
			return err
		}

		batches, movements, err := s.applyLines(ctx, repos, receipt, now)
		if err != nil {
			return err
		}
		if err := repos.ReceiptRepo().CreateLines(ctx, receipt.Lines); err != nil {
			return fmt.Errorf("failed to save receipt lines: %w", err)
		}
		if err := repos.MovementRepo().Append(ctx, movements...); err != nil {
			return fmt.Errorf("failed to append movements: %w", err)
		}

		resp = ToReceiptResponse(receipt, batches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// applyLines increments the batch of every line and builds one IN movement
// per touched batch, in first-touch order.
func (s *ReceiptService) applyLines(ctx context.Context, repos TransactionalRepositories, receipt *inventory.Receipt, now time.Time) ([]inventory.Batch, []*inventory.Movement, error) {
	store := NewBatchStore(repos.BatchRepo(), s.clock)
	scope := receipt.Scope()

	byKey := make(map[string]*inventory.Batch)
	added := make(map[uuid.UUID]int64)
	var order []*inventory.Batch

	for i := range receipt.Lines {
		line := &receipt.Lines[i]
		key := receipt.BatchKeyFor(line.LotNumber)
		batch, ok := byKey[key.String()]
		if !ok {
			var err error
			batch, err = store.FindOrCreate(ctx, scope, key)
			if err != nil {
				return nil, nil, err
			}
			byKey[key.String()] = batch
			order = append(order, batch)
		}

		units := line.BaseUnits()
		if err := store.Increment(ctx, batch, units); err != nil {
			return nil, nil, err
		}
		added[batch.ID] += units
		batchID := batch.ID
		line.BatchID = &batchID
	}

	batches := make([]inventory.Batch, 0, len(order))
	movements := make([]*inventory.Movement, 0, len(order))
	for _, batch := range order {
		m, err := inventory.NewInMovement(batch, receipt.ID, added[batch.ID], "receipt "+receipt.DocumentNumber, now)
		if err != nil {
			return nil, nil, err
		}
		movements = append(movements, m)
		batches = append(batches, *batch)
	}
	return batches, movements, nil
}

// documentNumber returns the caller's number after checking it is free, or
// generates the next number of the day inside the transaction.
func (s *ReceiptService) documentNumber(ctx context.Context, repo inventory.ReceiptRepository, req *CreateReceiptRequest, today time.Time) (string, error) {
	if number := strings.TrimSpace(req.DocumentNumber); number != "" {
		exists, err := repo.ExistsByDocumentNumber(ctx, req.WorkspaceID, number)
		if err != nil {
			return "", err
		}
		if exists {
			return "", inventory.ErrDuplicateDocumentNumber
		}
		return number, nil
	}

	dayPrefix := inventory.DocumentDayPrefix(s.settings.DocumentPrefix, today)
	existing, err := repo.DocumentNumbersWithPrefix(ctx, req.WorkspaceID, dayPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to read document numbers: %w", err)
	}
	return inventory.NextDocumentNumber(s.settings.DocumentPrefix, today, existing), nil
}

// resolveLines settles the pack size of every line from its variant or
// custom descriptor. An explicit pack size on the line wins. Retired
// variants can still be received.
func (s *ReceiptService) resolveLines(ctx context.Context, workspaceID, productID uuid.UUID, reqs []ReceiptLineRequest) ([]resolvedLine, error) {
	lines := make([]resolvedLine, len(reqs))
	for i, r := range reqs {
		line := resolvedLine{quantity: r.Quantity, lot: strings.TrimSpace(r.LotNumber)}

		switch {
		case r.VariantID != nil:
			variant, err := s.variants.FindVariant(ctx, workspaceID, *r.VariantID)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			if !variant.BelongsTo(productID) {
				return nil, fmt.Errorf("line %d: %w", i+1, catalog.ErrVariantWrongProduct)
			}
			id := variant.ID
			line.variantID = &id
			line.packSize = variant.PackSize
		case r.CustomPack != nil:
			line.customSaleMode = r.CustomPack.SaleMode
			line.customPackSize = r.CustomPack.PackSize
			line.packSize = r.CustomPack.PackSize
		default:
			return nil, fmt.Errorf("line %d: %w", i+1, inventory.ErrInvalidPackDescriptor)
		}
		if r.PackSize != nil {
			line.packSize = *r.PackSize
		}
		if line.packSize <= 0 {
			return nil, &inventory.InvalidQuantityError{Field: fmt.Sprintf("line %d pack size", i+1), Value: line.packSize}
		}
		if line.quantity <= 0 {
			return nil, &inventory.InvalidQuantityError{Field: fmt.Sprintf("line %d quantity", i+1), Value: line.quantity}
		}
		if err := checkPackUnits(i+1, line.packSize, line.quantity); err != nil {
			return nil, err
		}
		lines[i] = line
	}
	return lines, nil
}

// GetReceipt returns a receipt with its lines and batches. Locked is set once
// any of its batches has been consumed.
func (s *ReceiptService) GetReceipt(ctx context.Context, workspaceID, receiptID uuid.UUID) (*ReceiptResponse, error) {
	var resp ReceiptResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := findReceipt(ctx, repos.ReceiptRepo(), workspaceID, receiptID)
		if err != nil {
			return err
		}
		batches, err := repos.BatchRepo().FindByReceipt(ctx, receipt.ID)
		if err != nil {
			return err
		}
		resp = ToReceiptResponse(receipt, batches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListReceiptsByProduct lists the receipts of a product, newest first by default
func (s *ReceiptService) ListReceiptsByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID, filter ReceiptListFilter) ([]ReceiptResponse, error) {
	if err := validateRequest(&filter); err != nil {
		return nil, err
	}
	var out []ReceiptResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipts, err := repos.ReceiptRepo().FindByProduct(ctx, scope, productID, shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		})
		if err != nil {
			return err
		}
		out = make([]ReceiptResponse, 0, len(receipts))
		for i := range receipts {
			batches, err := repos.BatchRepo().FindByReceipt(ctx, receipts[i].ID)
			if err != nil {
				return err
			}
			out = append(out, ToReceiptResponse(&receipts[i], batches))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// findReceipt loads a receipt and hides receipts of other workspaces
func findReceipt(ctx context.Context, repo inventory.ReceiptRepository, workspaceID, receiptID uuid.UUID) (*inventory.Receipt, error) {
	receipt, err := repo.FindByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("%w: %w", inventory.ErrReceiptNotFound, shared.ErrNotFound)
	}
	return receipt, nil
}
