package contracts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/locafrota/locafrota/internal/branches"
	"github.com/locafrota/locafrota/internal/drivers"
	"github.com/locafrota/locafrota/internal/plans"
	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/internal/vehicles"
)

type memRepo struct {
	contracts map[int64]Contract
	vehicles  map[int64]vehicles.Vehicle
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		contracts: map[int64]Contract{},
		vehicles:  map[int64]vehicles.Vehicle{},
		nextID:    1,
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) Get(ctx context.Context, id int64) (Contract, error) {
	c, ok := m.contracts[id]
	if !ok {
		return Contract{}, fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	return c, nil
}

func (m *memRepo) List(ctx context.Context, filters ListFilters) ([]Contract, int, error) {
	var out []Contract
	for _, c := range m.contracts {
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memRepo) GetContractForUpdate(ctx context.Context, id int64) (Contract, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) GetVehicleForUpdate(ctx context.Context, id int64) (vehicles.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return vehicles.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
	}
	return v, nil
}

func (m *memRepo) SetVehicleStatus(ctx context.Context, id int64, status vehicles.Status) error {
	v, ok := m.vehicles[id]
	if !ok {
		return fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
	}
	v.Status = status
	m.vehicles[id] = v
	return nil
}

func (m *memRepo) CountActiveByVehicle(ctx context.Context, vehicleID, excludeContractID int64) (int, error) {
	n := 0
	for _, c := range m.contracts {
		if c.VehicleID == vehicleID && c.Status == StatusActive && c.ID != excludeContractID {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) InsertContract(ctx context.Context, c Contract) (Contract, error) {
	for _, existing := range m.contracts {
		if existing.ContractNumber == c.ContractNumber {
			return Contract{}, fmt.Errorf("contract number %q already exists: %w", c.ContractNumber, shared.ErrConflict)
		}
	}
	c.ID = m.nextID
	m.nextID++
	m.contracts[c.ID] = c
	return c, nil
}

func (m *memRepo) UpdateContract(ctx context.Context, c Contract) error {
	if _, ok := m.contracts[c.ID]; !ok {
		return fmt.Errorf("contract %d: %w", c.ID, shared.ErrNotFound)
	}
	m.contracts[c.ID] = c
	return nil
}

func (m *memRepo) DeleteContract(ctx context.Context, id int64) error {
	if _, ok := m.contracts[id]; !ok {
		return fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	delete(m.contracts, id)
	return nil
}

type fakeDrivers map[int64]drivers.Driver

func (f fakeDrivers) Get(ctx context.Context, id int64) (drivers.Driver, error) {
	d, ok := f[id]
	if !ok {
		return drivers.Driver{}, fmt.Errorf("driver %d: %w", id, shared.ErrNotFound)
	}
	return d, nil
}

type fakePlans map[int64]plans.Plan

func (f fakePlans) Get(ctx context.Context, id int64) (plans.Plan, error) {
	p, ok := f[id]
	if !ok {
		return plans.Plan{}, fmt.Errorf("plan %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

type fakeBranches map[int64]branches.Branch

func (f fakeBranches) Get(ctx context.Context, id int64) (branches.Branch, error) {
	b, ok := f[id]
	if !ok {
		return branches.Branch{}, fmt.Errorf("branch %d: %w", id, shared.ErrNotFound)
	}
	return b, nil
}

type fixture struct {
	repo    *memRepo
	service *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := newMemRepo()
	repo.vehicles[1] = vehicles.Vehicle{ID: 1, Plate: "ABC1D23", Category: "SEDAN", Status: vehicles.StatusAvailable}
	repo.vehicles[2] = vehicles.Vehicle{ID: 2, Plate: "DEF4G56", Category: "SEDAN", Status: vehicles.StatusAvailable}
	repo.vehicles[3] = vehicles.Vehicle{ID: 3, Plate: "GHI7J89", Category: "TRUCK", Status: vehicles.StatusAvailable}

	drv := fakeDrivers{
		1: {ID: 1, Name: "Ana", Active: true},
		2: {ID: 2, Name: "Bruno", Active: false},
		3: {ID: 3, Name: "Clara", Active: true, Blacklisted: true},
	}
	pln := fakePlans{
		1: {ID: 1, Name: "Mensal Sedan", AllowedCategories: []string{"SEDAN"}, Active: true},
		2: {ID: 2, Name: "Desativado", AllowedCategories: []string{"SEDAN"}, Active: false},
	}
	brn := fakeBranches{1: {ID: 1, Code: "POA", Name: "Porto Alegre"}}

	svc := NewService(repo, drv, pln, brn, nil, nil).
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })
	return fixture{repo: repo, service: svc}
}

func validInput() CreateInput {
	return CreateInput{
		ContractNumber: "CT-1001",
		DriverID:       1,
		VehicleID:      1,
		PlanID:         1,
		BranchID:       1,
		StartDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		BillingDay:     5,
		MonthlyAmount:  1890,
	}
}

func TestCreateStartsInDraftAndLeavesVehicleAvailable(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, c.Status)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[1].Status)
}

func TestCreateRejectsCategoryMismatch(t *testing.T) {
	f := newFixture(t)
	input := validInput()
	input.VehicleID = 3 // TRUCK, plan allows SEDAN only
	_, err := f.service.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, f.repo.contracts)
}

func TestCreateRejectsIneligibleDrivers(t *testing.T) {
	f := newFixture(t)

	input := validInput()
	input.DriverID = 2
	_, err := f.service.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrValidation)

	input.DriverID = 3
	_, err = f.service.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsInactivePlan(t *testing.T) {
	f := newFixture(t)
	input := validInput()
	input.PlanID = 2
	_, err := f.service.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	input := validInput()
	input.VehicleID = 2
	_, err = f.service.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateRejectsEndBeforeStart(t *testing.T) {
	f := newFixture(t)
	input := validInput()
	input.EndDate = input.StartDate.AddDate(0, 0, -1)
	_, err := f.service.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestActivateRentsVehicleExactlyOnce(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	activated, err := f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, activated.Status)
	require.NotNil(t, activated.SignedAt)
	require.Equal(t, vehicles.StatusRented, f.repo.vehicles[1].Status)

	_, err = f.service.Activate(context.Background(), c.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, vehicles.StatusRented, f.repo.vehicles[1].Status)
}

func TestActivateRefusesVehicleWithActiveContract(t *testing.T) {
	f := newFixture(t)
	first, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), first.ID)
	require.NoError(t, err)

	// second draft targeting the same vehicle, created before activation races
	second := Contract{ContractNumber: "CT-1002", DriverID: 1, VehicleID: 1, PlanID: 1, BranchID: 1,
		StartDate: validInput().StartDate, EndDate: validInput().EndDate, BillingDay: 5, Status: StatusDraft}
	inserted, err := f.repo.InsertContract(context.Background(), second)
	require.NoError(t, err)

	_, err = f.service.Activate(context.Background(), inserted.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, StatusDraft, f.repo.contracts[inserted.ID].Status)
}

func TestSuspendAndReactivate(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	_, err = f.service.Suspend(context.Background(), c.ID, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	suspended, err := f.service.Suspend(context.Background(), c.ID, "payment dispute")
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, suspended.Status)
	require.Contains(t, suspended.Notes, "payment dispute")
	require.Equal(t, vehicles.StatusRented, f.repo.vehicles[1].Status)

	reactivated, err := f.service.Reactivate(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, reactivated.Status)
}

func TestCancelActiveReleasesVehicle(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	canceled, err := f.service.Cancel(context.Background(), c.ID, "customer gave up")
	require.NoError(t, err)
	require.Equal(t, StatusCanceled, canceled.Status)
	require.Equal(t, "customer gave up", canceled.CancelReason)
	require.NotNil(t, canceled.CanceledAt)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[1].Status)
}

func TestCancelDraftLeavesVehicleUntouched(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.service.Cancel(context.Background(), c.ID, "never signed")
	require.NoError(t, err)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[1].Status)
}

func TestCancelTerminalStateFails(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Cancel(context.Background(), c.ID, "first")
	require.NoError(t, err)

	_, err = f.service.Cancel(context.Background(), c.ID, "again")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCompleteReleasesVehicle(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	completed, err := f.service.Complete(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[1].Status)
}

func TestCompleteRequiresActive(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.service.Complete(context.Background(), c.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestChangeVehicleSwapsAllocation(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	changed, err := f.service.ChangeVehicle(context.Background(), c.ID, 2, "breakdown")
	require.NoError(t, err)
	require.Equal(t, int64(2), changed.VehicleID)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[1].Status)
	require.Equal(t, vehicles.StatusRented, f.repo.vehicles[2].Status)
	require.Contains(t, changed.Notes, "breakdown")
}

func TestChangeVehicleRejectsIncompatibleCategory(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	_, err = f.service.ChangeVehicle(context.Background(), c.ID, 3, "")
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, vehicles.StatusRented, f.repo.vehicles[1].Status)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[3].Status)
}

func TestChangeVehicleRejectsDraftContract(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.service.ChangeVehicle(context.Background(), c.ID, 2, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRentedImpliesExactlyOneActiveContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(ctx, c.ID)
	require.NoError(t, err)
	requireAllocationInvariant(t, f.repo)

	_, err = f.service.ChangeVehicle(ctx, c.ID, 2, "")
	require.NoError(t, err)
	requireAllocationInvariant(t, f.repo)

	_, err = f.service.Complete(ctx, c.ID)
	require.NoError(t, err)
	requireAllocationInvariant(t, f.repo)
}

func requireAllocationInvariant(t *testing.T, repo *memRepo) {
	t.Helper()
	for id, v := range repo.vehicles {
		active := 0
		for _, c := range repo.contracts {
			if c.VehicleID == id && c.Status == StatusActive {
				active++
			}
		}
		if v.Status == vehicles.StatusRented {
			require.Equal(t, 1, active, "vehicle %d rented with %d active contracts", id, active)
		} else {
			require.Zero(t, active, "vehicle %d not rented but has active contract", id)
		}
	}
}

func TestUpdateRejectsVehicleSwapOnActive(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	input := UpdateInput{
		ContractNumber: c.ContractNumber,
		VehicleID:      2,
		PlanID:         c.PlanID,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		BillingDay:     c.BillingDay,
		MonthlyAmount:  c.MonthlyAmount,
	}
	_, err = f.service.Update(context.Background(), c.ID, input)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestUpdateRejectsVehicleSwapOnSuspended(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.service.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(ctx, c.ID)
	require.NoError(t, err)
	_, err = f.service.Suspend(ctx, c.ID, "payment dispute")
	require.NoError(t, err)

	input := UpdateInput{
		ContractNumber: c.ContractNumber,
		VehicleID:      2,
		PlanID:         c.PlanID,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		BillingDay:     c.BillingDay,
		MonthlyAmount:  c.MonthlyAmount,
	}
	_, err = f.service.Update(ctx, c.ID, input)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// the suspended contract still holds its original vehicle
	require.Equal(t, int64(1), f.repo.contracts[c.ID].VehicleID)
	require.Equal(t, vehicles.StatusRented, f.repo.vehicles[1].Status)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[2].Status)

	_, err = f.service.Reactivate(ctx, c.ID)
	require.NoError(t, err)
	requireAllocationInvariant(t, f.repo)
}

func TestChangeVehicleWhileSuspendedSwapsAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.service.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(ctx, c.ID)
	require.NoError(t, err)
	_, err = f.service.Suspend(ctx, c.ID, "maintenance hold")
	require.NoError(t, err)

	changed, err := f.service.ChangeVehicle(ctx, c.ID, 2, "breakdown")
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, changed.Status)
	require.Equal(t, int64(2), changed.VehicleID)
	require.Equal(t, vehicles.StatusAvailable, f.repo.vehicles[1].Status)
	require.Equal(t, vehicles.StatusRented, f.repo.vehicles[2].Status)

	_, err = f.service.Reactivate(ctx, c.ID)
	require.NoError(t, err)
	requireAllocationInvariant(t, f.repo)
}

func TestDeleteRefusesActiveContract(t *testing.T) {
	f := newFixture(t)
	c, err := f.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.service.Activate(context.Background(), c.ID)
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), c.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.service.Cancel(context.Background(), c.ID, "wind down")
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(context.Background(), c.ID))

	_, err = f.repo.Get(context.Background(), c.ID)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	all := []Status{StatusDraft, StatusActive, StatusSuspended, StatusCanceled, StatusCompleted}
	for _, s := range all {
		require.True(t, s.Valid())
	}
	require.True(t, StatusCanceled.Terminal())
	require.True(t, StatusCompleted.Terminal())
	require.False(t, StatusDraft.CanTransition(StatusCompleted))
	require.False(t, StatusSuspended.CanTransition(StatusCompleted))
	require.False(t, StatusCompleted.CanTransition(StatusActive))
}
