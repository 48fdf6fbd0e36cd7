package contracts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/locafrota/locafrota/internal/branches"
	"github.com/locafrota/locafrota/internal/drivers"
	"github.com/locafrota/locafrota/internal/plans"
	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/internal/vehicles"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Contract, error)
	List(ctx context.Context, filters ListFilters) ([]Contract, int, error)
}

// DriverLookup resolves driver eligibility for contract guards.
type DriverLookup interface {
	Get(ctx context.Context, id int64) (drivers.Driver, error)
}

// PlanLookup resolves plan activity and category compatibility.
type PlanLookup interface {
	Get(ctx context.Context, id int64) (plans.Plan, error)
}

// BranchLookup resolves branch existence.
type BranchLookup interface {
	Get(ctx context.Context, id int64) (branches.Branch, error)
}

// FleetPort invalidates the cached fleet summary after allocation changes.
type FleetPort interface {
	BustSummary(ctx context.Context)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the contract lifecycle state machine. Every transition that
// touches allocation commits contract and vehicle rows in one transaction.
type Service struct {
	repo     RepositoryPort
	drivers  DriverLookup
	plans    PlanLookup
	branches BranchLookup
	fleet    FleetPort
	audit    AuditPort
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, drv DriverLookup, pln PlanLookup, brn BranchLookup, fleet FleetPort, audit AuditPort) *Service {
	return &Service{
		repo:     repo,
		drivers:  drv,
		plans:    pln,
		branches: brn,
		fleet:    fleet,
		audit:    audit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput carries the fields a new draft contract is built from.
type CreateInput struct {
	ContractNumber string
	DriverID       int64
	VehicleID      int64
	PlanID         int64
	BranchID       int64
	StartDate      time.Time
	EndDate        time.Time
	BillingDay     int
	MonthlyAmount  float64
	Deposit        float64
	OdometerStart  int64
}

// UpdateInput carries the mutable non-status fields.
type UpdateInput struct {
	ContractNumber  string
	VehicleID       int64
	PlanID          int64
	StartDate       time.Time
	EndDate         time.Time
	BillingDay      int
	MonthlyAmount   float64
	Deposit         float64
	OdometerCurrent int64
}

func validateTerms(number string, start, end time.Time, billingDay int, monthly, deposit float64) error {
	if strings.TrimSpace(number) == "" {
		return fmt.Errorf("contract number is required: %w", shared.ErrValidation)
	}
	if !end.After(start) {
		return fmt.Errorf("end date must be after start date: %w", shared.ErrValidation)
	}
	if billingDay < 1 || billingDay > 31 {
		return fmt.Errorf("billing day must be between 1 and 31: %w", shared.ErrValidation)
	}
	if monthly < 0 {
		return fmt.Errorf("monthly amount cannot be negative: %w", shared.ErrValidation)
	}
	if deposit < 0 {
		return fmt.Errorf("deposit cannot be negative: %w", shared.ErrValidation)
	}
	return nil
}

// checkDriver verifies the driver exists, is active and is not blacklisted.
func (s *Service) checkDriver(ctx context.Context, id int64) error {
	d, err := s.drivers.Get(ctx, id)
	if err != nil {
		return err
	}
	if !d.Active {
		return fmt.Errorf("driver %d is inactive: %w", id, shared.ErrValidation)
	}
	if d.Blacklisted {
		return fmt.Errorf("driver %d is blacklisted: %w", id, shared.ErrValidation)
	}
	return nil
}

// checkPlan verifies the plan is active and returns it for category checks.
func (s *Service) checkPlan(ctx context.Context, id int64) (plans.Plan, error) {
	p, err := s.plans.Get(ctx, id)
	if err != nil {
		return plans.Plan{}, err
	}
	if !p.Active {
		return plans.Plan{}, fmt.Errorf("plan %d is inactive: %w", id, shared.ErrValidation)
	}
	return p, nil
}

// Create registers a new contract in the draft state. The vehicle row is
// locked so the availability check and the insert see one consistent view,
// but its allocation state is not changed until activation.
func (s *Service) Create(ctx context.Context, input CreateInput) (Contract, error) {
	if err := validateTerms(input.ContractNumber, input.StartDate, input.EndDate, input.BillingDay, input.MonthlyAmount, input.Deposit); err != nil {
		return Contract{}, err
	}
	if input.OdometerStart < 0 {
		return Contract{}, fmt.Errorf("odometer cannot be negative: %w", shared.ErrValidation)
	}
	if err := s.checkDriver(ctx, input.DriverID); err != nil {
		return Contract{}, err
	}
	plan, err := s.checkPlan(ctx, input.PlanID)
	if err != nil {
		return Contract{}, err
	}
	if _, err := s.branches.Get(ctx, input.BranchID); err != nil {
		return Contract{}, err
	}

	var created Contract
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVehicleForUpdate(ctx, input.VehicleID)
		if err != nil {
			return err
		}
		if v.Status != vehicles.StatusAvailable {
			return fmt.Errorf("vehicle %d is %s, not available: %w", v.ID, v.Status, shared.ErrValidation)
		}
		if !plan.Allows(v.Category) {
			return fmt.Errorf("vehicle category %q not allowed by plan %d: %w", v.Category, plan.ID, shared.ErrValidation)
		}
		active, err := tx.CountActiveByVehicle(ctx, v.ID, 0)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("vehicle %d already has an active contract: %w", v.ID, shared.ErrConflict)
		}

		c := Contract{
			ContractNumber:  strings.TrimSpace(input.ContractNumber),
			DriverID:        input.DriverID,
			VehicleID:       input.VehicleID,
			PlanID:          input.PlanID,
			BranchID:        input.BranchID,
			StartDate:       input.StartDate,
			EndDate:         input.EndDate,
			BillingDay:      input.BillingDay,
			MonthlyAmount:   input.MonthlyAmount,
			Deposit:         input.Deposit,
			OdometerStart:   input.OdometerStart,
			OdometerCurrent: input.OdometerStart,
			Status:          StatusDraft,
		}
		if c.OdometerStart == 0 {
			c.OdometerStart = v.CurrentOdometer
			c.OdometerCurrent = v.CurrentOdometer
		}
		created, err = tx.InsertContract(ctx, c)
		return err
	})
	if err != nil {
		return Contract{}, err
	}
	s.recordAudit(ctx, created.ID, "contract:create", map[string]any{"contract_number": created.ContractNumber})
	return created, nil
}

// Get loads one contract.
func (s *Service) Get(ctx context.Context, id int64) (Contract, error) {
	if id <= 0 {
		return Contract{}, fmt.Errorf("invalid contract ID: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List returns contracts matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Contract, int, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown contract status %q: %w", filters.Status, shared.ErrValidation)
	}
	return s.repo.List(ctx, filters)
}

// Activate moves a draft contract to active and marks its vehicle rented.
func (s *Service) Activate(ctx context.Context, id int64) (Contract, error) {
	var out Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != StatusDraft {
			return fmt.Errorf("cannot activate contract in status %s: %w", c.Status, shared.ErrInvalidState)
		}
		v, err := tx.GetVehicleForUpdate(ctx, c.VehicleID)
		if err != nil {
			return err
		}
		if v.Status != vehicles.StatusAvailable {
			return fmt.Errorf("vehicle %d is %s, not available: %w", v.ID, v.Status, shared.ErrConflict)
		}
		active, err := tx.CountActiveByVehicle(ctx, v.ID, c.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("vehicle %d already has an active contract: %w", v.ID, shared.ErrConflict)
		}
		if err := tx.SetVehicleStatus(ctx, v.ID, vehicles.StatusRented); err != nil {
			return err
		}
		now := s.now()
		c.Status = StatusActive
		c.SignedAt = &now
		c.Notes = appendNote(c.Notes, "contract activated", now)
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	s.afterAllocationChange(ctx, out.ID, "contract:activate", map[string]any{"vehicle_id": out.VehicleID})
	return out, nil
}

// Suspend pauses an active contract. The vehicle stays rented.
func (s *Service) Suspend(ctx context.Context, id int64, reason string) (Contract, error) {
	if strings.TrimSpace(reason) == "" {
		return Contract{}, fmt.Errorf("suspension reason is required: %w", shared.ErrValidation)
	}
	var out Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !c.Status.CanTransition(StatusSuspended) {
			return fmt.Errorf("cannot suspend contract in status %s: %w", c.Status, shared.ErrInvalidState)
		}
		c.Status = StatusSuspended
		c.Notes = appendNote(c.Notes, "suspended: "+reason, s.now())
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	s.recordAudit(ctx, out.ID, "contract:suspend", map[string]any{"reason": reason})
	return out, nil
}

// Reactivate resumes a suspended contract.
func (s *Service) Reactivate(ctx context.Context, id int64) (Contract, error) {
	var out Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != StatusSuspended {
			return fmt.Errorf("cannot reactivate contract in status %s: %w", c.Status, shared.ErrInvalidState)
		}
		c.Status = StatusActive
		c.Notes = appendNote(c.Notes, "contract reactivated", s.now())
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	s.recordAudit(ctx, out.ID, "contract:reactivate", nil)
	return out, nil
}

// Cancel terminates a contract from draft, active or suspended. A vehicle
// rented under the contract is released.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (Contract, error) {
	if strings.TrimSpace(reason) == "" {
		return Contract{}, fmt.Errorf("cancellation reason is required: %w", shared.ErrValidation)
	}
	var out Contract
	var released bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !c.Status.CanTransition(StatusCanceled) {
			return fmt.Errorf("cannot cancel contract in status %s: %w", c.Status, shared.ErrInvalidState)
		}
		if c.Status == StatusActive || c.Status == StatusSuspended {
			if err := tx.SetVehicleStatus(ctx, c.VehicleID, vehicles.StatusAvailable); err != nil {
				return err
			}
			released = true
		}
		now := s.now()
		c.Status = StatusCanceled
		c.CanceledAt = &now
		c.CancelReason = reason
		c.Notes = appendNote(c.Notes, "canceled: "+reason, now)
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	if released {
		s.afterAllocationChange(ctx, out.ID, "contract:cancel", map[string]any{"reason": reason})
	} else {
		s.recordAudit(ctx, out.ID, "contract:cancel", map[string]any{"reason": reason})
	}
	return out, nil
}

// Complete closes an active contract at the end of the rental and releases
// the vehicle.
func (s *Service) Complete(ctx context.Context, id int64) (Contract, error) {
	var out Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != StatusActive {
			return fmt.Errorf("cannot complete contract in status %s: %w", c.Status, shared.ErrInvalidState)
		}
		if err := tx.SetVehicleStatus(ctx, c.VehicleID, vehicles.StatusAvailable); err != nil {
			return err
		}
		c.Status = StatusCompleted
		c.Notes = appendNote(c.Notes, "contract completed", s.now())
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	s.afterAllocationChange(ctx, out.ID, "contract:complete", map[string]any{"vehicle_id": out.VehicleID})
	return out, nil
}

// ChangeVehicle swaps the vehicle under an active or suspended contract.
// Both vehicle rows and the contract row commit in one transaction so no
// reader observes two rented vehicles or an orphaned contract.
func (s *Service) ChangeVehicle(ctx context.Context, id, newVehicleID int64, note string) (Contract, error) {
	if newVehicleID <= 0 {
		return Contract{}, fmt.Errorf("invalid vehicle ID: %w", shared.ErrValidation)
	}
	var out Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != StatusActive && c.Status != StatusSuspended {
			return fmt.Errorf("cannot change vehicle on contract in status %s: %w", c.Status, shared.ErrInvalidState)
		}
		if c.VehicleID == newVehicleID {
			return fmt.Errorf("contract %d already uses vehicle %d: %w", c.ID, newVehicleID, shared.ErrValidation)
		}
		plan, err := s.checkPlan(ctx, c.PlanID)
		if err != nil {
			return err
		}
		next, err := tx.GetVehicleForUpdate(ctx, newVehicleID)
		if err != nil {
			return err
		}
		if next.Status != vehicles.StatusAvailable {
			return fmt.Errorf("vehicle %d is %s, not available: %w", next.ID, next.Status, shared.ErrConflict)
		}
		if !plan.Allows(next.Category) {
			return fmt.Errorf("vehicle category %q not allowed by plan %d: %w", next.Category, plan.ID, shared.ErrValidation)
		}
		active, err := tx.CountActiveByVehicle(ctx, next.ID, c.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("vehicle %d already has an active contract: %w", next.ID, shared.ErrConflict)
		}
		if err := tx.SetVehicleStatus(ctx, c.VehicleID, vehicles.StatusAvailable); err != nil {
			return err
		}
		if err := tx.SetVehicleStatus(ctx, next.ID, vehicles.StatusRented); err != nil {
			return err
		}
		line := "vehicle changed from " + strconv.FormatInt(c.VehicleID, 10) + " to " + strconv.FormatInt(next.ID, 10)
		if strings.TrimSpace(note) != "" {
			line += ": " + note
		}
		c.VehicleID = next.ID
		c.Notes = appendNote(c.Notes, line, s.now())
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	s.afterAllocationChange(ctx, out.ID, "contract:change-vehicle", map[string]any{"vehicle_id": newVehicleID})
	return out, nil
}

// Update edits the non-status fields of a contract. Changing the vehicle of
// an active contract must go through ChangeVehicle.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Contract, error) {
	if err := validateTerms(input.ContractNumber, input.StartDate, input.EndDate, input.BillingDay, input.MonthlyAmount, input.Deposit); err != nil {
		return Contract{}, err
	}
	if input.OdometerCurrent < 0 {
		return Contract{}, fmt.Errorf("odometer cannot be negative: %w", shared.ErrValidation)
	}
	var out Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.Status.Terminal() {
			return fmt.Errorf("cannot update contract in status %s: %w", c.Status, shared.ErrInvalidState)
		}

		planID := c.PlanID
		if input.PlanID != 0 {
			planID = input.PlanID
		}
		plan, err := s.checkPlan(ctx, planID)
		if err != nil {
			return err
		}

		if input.VehicleID != 0 && input.VehicleID != c.VehicleID {
			// Once the vehicle is rented (active or suspended) a swap must
			// release the old unit and claim the new one; only ChangeVehicle
			// does that pair.
			if c.Status != StatusDraft {
				return fmt.Errorf("contract in status %s requires the change-vehicle operation: %w", c.Status, shared.ErrInvalidState)
			}
			v, err := tx.GetVehicleForUpdate(ctx, input.VehicleID)
			if err != nil {
				return err
			}
			if v.Status != vehicles.StatusAvailable {
				return fmt.Errorf("vehicle %d is %s, not available: %w", v.ID, v.Status, shared.ErrValidation)
			}
			if !plan.Allows(v.Category) {
				return fmt.Errorf("vehicle category %q not allowed by plan %d: %w", v.Category, plan.ID, shared.ErrValidation)
			}
			active, err := tx.CountActiveByVehicle(ctx, v.ID, c.ID)
			if err != nil {
				return err
			}
			if active > 0 {
				return fmt.Errorf("vehicle %d already has an active contract: %w", v.ID, shared.ErrConflict)
			}
			c.VehicleID = v.ID
		}

		c.ContractNumber = strings.TrimSpace(input.ContractNumber)
		c.PlanID = planID
		c.StartDate = input.StartDate
		c.EndDate = input.EndDate
		c.BillingDay = input.BillingDay
		c.MonthlyAmount = input.MonthlyAmount
		c.Deposit = input.Deposit
		if input.OdometerCurrent > 0 {
			c.OdometerCurrent = input.OdometerCurrent
		}
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	s.recordAudit(ctx, out.ID, "contract:update", nil)
	return out, nil
}

// Delete removes a contract that is not active.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetContractForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.Status == StatusActive {
			return fmt.Errorf("cannot delete an active contract: %w", shared.ErrInvalidState)
		}
		return tx.DeleteContract(ctx, c.ID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, id, "contract:delete", nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, contractID int64, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "contract",
		EntityID: strconv.FormatInt(contractID, 10),
		Meta:     meta,
	})
}

func (s *Service) afterAllocationChange(ctx context.Context, contractID int64, action string, meta map[string]any) {
	s.recordAudit(ctx, contractID, action, meta)
	if s.fleet != nil {
		s.fleet.BustSummary(ctx)
	}
}
