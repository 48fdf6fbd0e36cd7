package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/locafrota/locafrota/internal/contracts"
	"github.com/locafrota/locafrota/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filters ListFilters) ([]Invoice, int, error)
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	RecordPayment(ctx context.Context, inv Invoice) error
	Cancel(ctx context.Context, id int64) error
	MarkOverdue(ctx context.Context, before time.Time) (int64, error)
}

// ContractSource supplies the active contracts the generator bills.
type ContractSource interface {
	ListActive(ctx context.Context) ([]contracts.Contract, error)
}

// IdempotencyPort guards retried payment requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service derives invoices from active contracts and manages their payment
// lifecycle.
type Service struct {
	logger      *slog.Logger
	repo        RepositoryPort
	contracts   ContractSource
	lock        *shared.RunLock
	idempotency IdempotencyPort
	audit       AuditPort
	now         func() time.Time
}

// NewService builds Service. lock, idempotency and audit may be nil.
func NewService(logger *slog.Logger, repo RepositoryPort, src ContractSource, lock *shared.RunLock, idem IdempotencyPort, audit AuditPort) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		contracts:   src,
		lock:        lock,
		idempotency: idem,
		audit:       audit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GenerateResult summarises one generator run.
type GenerateResult struct {
	ReferenceMonth string    `json:"reference_month"`
	Created        int       `json:"created"`
	Skipped        int       `json:"skipped"`
	AlreadyRunning bool      `json:"already_running,omitempty"`
	Invoices       []Invoice `json:"invoices"`
}

// GenerateMonthlyInvoices creates one pending invoice per active contract
// for the current reference month. Contracts already billed for the month
// are skipped, so the run is safe to repeat after a partial failure. A
// best-effort redis lock short-circuits concurrent runs; row uniqueness is
// still enforced by the database either way.
func (s *Service) GenerateMonthlyInvoices(ctx context.Context) (GenerateResult, error) {
	ref := ReferenceMonthOf(s.now())
	result := GenerateResult{ReferenceMonth: ref}

	lockKey := shared.BillingRunLockKey(ref)
	acquired, err := s.lock.Acquire(ctx, lockKey)
	if err != nil {
		return result, err
	}
	if !acquired {
		s.logger.Info("billing run already in progress", slog.String("reference_month", ref))
		result.AlreadyRunning = true
		return result, nil
	}
	defer func() {
		if err := s.lock.Release(ctx, lockKey); err != nil {
			s.logger.Warn("release billing run lock", slog.Any("error", err))
		}
	}()

	active, err := s.contracts.ListActive(ctx)
	if err != nil {
		return result, err
	}
	for _, c := range active {
		dueDate, err := DueDateFor(ref, c.BillingDay)
		if err != nil {
			return result, err
		}
		created, err := s.repo.Insert(ctx, Invoice{
			ContractID:     c.ID,
			ReferenceMonth: ref,
			DueDate:        dueDate,
			Amount:         c.MonthlyAmount,
			Status:         StatusPending,
		})
		if err != nil {
			if errors.Is(err, shared.ErrConflict) {
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Created++
		result.Invoices = append(result.Invoices, created)
	}

	s.logger.Info("billing run finished",
		slog.String("reference_month", ref),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped))
	s.recordAudit(ctx, 0, "billing:generate", map[string]any{
		"reference_month": ref,
		"created":         result.Created,
		"skipped":         result.Skipped,
	})
	return result, nil
}

// PaymentInput carries the payment details for RecordPayment.
type PaymentInput struct {
	PaymentDate   time.Time
	PaymentMethod string
	LateFee       *float64
	Observations  string
}

// RecordPayment settles a pending or overdue invoice. Paid is terminal;
// paying again or paying a canceled invoice fails without touching the row.
// The status checks here give the caller a precise error; the repository
// write re-checks the status so a concurrent cancel or payment still loses.
func (s *Service) RecordPayment(ctx context.Context, id int64, input PaymentInput, idempotencyKey string) (Invoice, error) {
	if input.PaymentDate.IsZero() {
		return Invoice{}, fmt.Errorf("payment date is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return Invoice{}, fmt.Errorf("payment method is required: %w", shared.ErrValidation)
	}
	if input.LateFee != nil && *input.LateFee < 0 {
		return Invoice{}, fmt.Errorf("late fee cannot be negative: %w", shared.ErrValidation)
	}

	insertedKey := false
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "billing"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Invoice{}, fmt.Errorf("payment request %q already processed: %w", idempotencyKey, shared.ErrConflict)
			}
			return Invoice{}, err
		}
		insertedKey = true
	}
	rollbackKey := func() {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
	}

	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		rollbackKey()
		return Invoice{}, err
	}
	switch inv.Status {
	case StatusPaid:
		rollbackKey()
		return Invoice{}, fmt.Errorf("invoice %d is already paid: %w", id, shared.ErrInvalidState)
	case StatusCanceled:
		rollbackKey()
		return Invoice{}, fmt.Errorf("invoice %d is canceled: %w", id, shared.ErrInvalidState)
	}

	paymentDate := input.PaymentDate.UTC()
	inv.Status = StatusPaid
	inv.PaymentDate = &paymentDate
	inv.PaymentMethod = input.PaymentMethod
	inv.DaysLate = DaysLate(inv.DueDate, paymentDate)
	inv.LateFee = 0
	if input.LateFee != nil {
		inv.LateFee = *input.LateFee
	}
	if strings.TrimSpace(input.Observations) != "" {
		inv.Observations = input.Observations
	}
	if err := s.repo.RecordPayment(ctx, inv); err != nil {
		rollbackKey()
		return Invoice{}, err
	}

	s.recordAudit(ctx, inv.ID, "billing:payment", map[string]any{
		"payment_method": inv.PaymentMethod,
		"days_late":      inv.DaysLate,
		"late_fee":       inv.LateFee,
	})
	return inv, nil
}

// MarkOverdueInvoices reclassifies pending invoices whose due date passed.
// The comparison is date-only: an invoice due today is not overdue yet.
func (s *Service) MarkOverdueInvoices(ctx context.Context) (int64, error) {
	today := truncateToDay(s.now())
	n, err := s.repo.MarkOverdue(ctx, today)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("overdue sweep finished", slog.Int64("marked", n))
		s.recordAudit(ctx, 0, "billing:overdue_sweep", map[string]any{"marked": n})
	}
	return n, nil
}

// CancelInvoice voids an invoice that was never paid.
func (s *Service) CancelInvoice(ctx context.Context, id int64, reason string) (Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	switch inv.Status {
	case StatusPaid:
		return Invoice{}, fmt.Errorf("invoice %d is paid and cannot be canceled: %w", id, shared.ErrInvalidState)
	case StatusCanceled:
		return Invoice{}, fmt.Errorf("invoice %d is already canceled: %w", id, shared.ErrInvalidState)
	}
	if err := s.repo.Cancel(ctx, id); err != nil {
		return Invoice{}, err
	}
	inv.Status = StatusCanceled
	s.recordAudit(ctx, id, "billing:cancel-invoice", map[string]any{"reason": reason})
	return inv, nil
}

// Get loads one invoice.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, fmt.Errorf("invalid invoice ID: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List returns invoices matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown invoice status %q: %w", filters.Status, shared.ErrValidation)
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) recordAudit(ctx context.Context, invoiceID int64, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	// Batch operations have no single invoice row to point at.
	entityID := "batch"
	if invoiceID > 0 {
		entityID = strconv.FormatInt(invoiceID, 10)
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "invoice",
		EntityID: entityID,
		Meta:     meta,
	})
}
