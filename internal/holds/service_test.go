package holds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reservely/internal/audit"
	"reservely/internal/capacity"
	"reservely/internal/ledger"
	"reservely/pkg/logger"
)

type fakeHoldRepo struct {
	holds map[uuid.UUID]*Hold

	// loseTransitions simulates a concurrent caller winning every
	// ACTIVE->terminal transition first
	loseTransitions bool
	transitionCalls int
}

func newFakeHoldRepo() *fakeHoldRepo {
	return &fakeHoldRepo{holds: make(map[uuid.UUID]*Hold)}
}

func (f *fakeHoldRepo) put(hold *Hold) *Hold {
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	f.holds[hold.ID] = hold
	return hold
}

func (f *fakeHoldRepo) CreateTx(tx *gorm.DB, hold *Hold) error {
	f.put(hold)
	return nil
}

func (f *fakeHoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*Hold, error) {
	stored, ok := f.holds[id]
	if !ok {
		return nil, ErrHoldNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeHoldRepo) TransitionTx(tx *gorm.DB, id uuid.UUID, next HoldState) (bool, error) {
	f.transitionCalls++
	if f.loseTransitions {
		return false, nil
	}
	stored, ok := f.holds[id]
	if !ok || stored.State != StateActive {
		return false, nil
	}
	stored.State = next
	return true, nil
}

func (f *fakeHoldRepo) ExtendTx(tx *gorm.DB, id uuid.UUID, expiresAt time.Time) (bool, error) {
	stored, ok := f.holds[id]
	if !ok || stored.State != StateActive {
		return false, nil
	}
	stored.ExpiresAt = expiresAt
	return true, nil
}

func (f *fakeHoldRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]Hold, error) {
	var expired []Hold
	for _, stored := range f.holds {
		if len(expired) == limit {
			break
		}
		if stored.IsExpired(now) {
			expired = append(expired, *stored)
		}
	}
	return expired, nil
}

func (f *fakeHoldRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]Hold, error) {
	return nil, nil
}

type fakeLedger struct {
	reserveCalls    int
	releaseCalls    int
	confirmCalls    int
	invalidateCalls int

	holdTimeoutMinutes int
}

func (f *fakeLedger) ReserveTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) (*ledger.ReserveOutcome, error) {
	f.reserveCalls += n
	return &ledger.ReserveOutcome{
		Entry:  &ledger.SlotLedgerEntry{EventID: eventID, AccessTypeID: accessTypeID, HeldCount: n},
		Config: &capacity.CapacityConfig{EventID: eventID, AccessTypeID: accessTypeID, TotalCapacity: 100, HoldTimeoutMinutes: f.holdTimeoutMinutes},
	}, nil
}

func (f *fakeLedger) ReleaseTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) error {
	f.releaseCalls += n
	return nil
}

func (f *fakeLedger) ConfirmTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) (*ledger.ReserveOutcome, error) {
	f.confirmCalls += n
	return &ledger.ReserveOutcome{}, nil
}

func (f *fakeLedger) AvailableTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeLedger) Reserve(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) (*ledger.ReserveOutcome, error) {
	return f.ReserveTx(nil, eventID, accessTypeID, n)
}

func (f *fakeLedger) Release(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) error {
	return f.ReleaseTx(nil, eventID, accessTypeID, n)
}

func (f *fakeLedger) Confirm(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) error {
	_, err := f.ConfirmTx(nil, eventID, accessTypeID, n)
	return err
}

func (f *fakeLedger) AvailableSlots(ctx context.Context, eventID, accessTypeID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeLedger) GetSnapshot(ctx context.Context, eventID, accessTypeID uuid.UUID) (*ledger.Snapshot, error) {
	return &ledger.Snapshot{EventID: eventID, AccessTypeID: accessTypeID}, nil
}

func (f *fakeLedger) InvalidateViews(ctx context.Context, eventID uuid.UUID) {
	f.invalidateCalls++
}

type fakeAuditor struct {
	recorded []audit.EventType
}

func (f *fakeAuditor) RecordTx(tx *gorm.DB, evt audit.Event) error {
	f.recorded = append(f.recorded, evt.Type)
	return nil
}

func (f *fakeAuditor) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	return nil, nil
}

func (f *fakeAuditor) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	return nil
}

func (f *fakeAuditor) count(eventType audit.EventType) int {
	n := 0
	for _, recorded := range f.recorded {
		if recorded == eventType {
			n++
		}
	}
	return n
}

func newTestManager(repo Repository, ledgerSvc ledger.Service, auditor audit.Recorder) *manager {
	return &manager{
		repo:    repo,
		ledger:  ledgerSvc,
		auditor: auditor,
		log:     logger.New(),
		runInTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return fn(nil)
		},
	}
}

func activeHold(expiresAt time.Time) *Hold {
	return &Hold{
		ID:           uuid.New(),
		EventID:      uuid.New(),
		AccessTypeID: uuid.New(),
		HolderRef:    uuid.New(),
		State:        StateActive,
		ExpiresAt:    expiresAt,
	}
}

func TestCreateHoldSetsDeadlineFromConfig(t *testing.T) {
	repo := newFakeHoldRepo()
	ledgerSvc := &fakeLedger{holdTimeoutMinutes: 15}
	auditor := &fakeAuditor{}
	m := newTestManager(repo, ledgerSvc, auditor)

	before := time.Now().UTC()
	hold, err := m.CreateHold(context.Background(), CreateHoldRequest{
		EventID:      uuid.New(),
		AccessTypeID: uuid.New(),
		HolderRef:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("CreateHold failed: %v", err)
	}

	if hold.State != StateActive {
		t.Errorf("new hold state = %s, want ACTIVE", hold.State)
	}
	wantExpiry := before.Add(15 * time.Minute)
	if hold.ExpiresAt.Before(wantExpiry) || hold.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want about %v", hold.ExpiresAt, wantExpiry)
	}
	if ledgerSvc.reserveCalls != 1 {
		t.Errorf("reserved %d slots, want 1", ledgerSvc.reserveCalls)
	}
	if auditor.count(audit.EventHoldCreated) != 1 {
		t.Errorf("recorded %d HoldCreated events, want 1", auditor.count(audit.EventHoldCreated))
	}
}

func TestReleaseHoldTwiceReleasesLedgerOnce(t *testing.T) {
	repo := newFakeHoldRepo()
	ledgerSvc := &fakeLedger{}
	auditor := &fakeAuditor{}
	m := newTestManager(repo, ledgerSvc, auditor)

	hold := repo.put(activeHold(time.Now().UTC().Add(time.Hour)))

	if err := m.ReleaseHold(context.Background(), hold.ID); err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	if err := m.ReleaseHold(context.Background(), hold.ID); err != nil {
		t.Fatalf("duplicate release must be a no-op, got: %v", err)
	}

	if ledgerSvc.releaseCalls != 1 {
		t.Errorf("ledger released %d times, want exactly 1", ledgerSvc.releaseCalls)
	}
	if repo.holds[hold.ID].State != StateReleased {
		t.Errorf("stored state = %s, want RELEASED", repo.holds[hold.ID].State)
	}
	if auditor.count(audit.EventHoldReleased) != 1 {
		t.Errorf("recorded %d HoldReleased events, want 1", auditor.count(audit.EventHoldReleased))
	}
}

func TestReleaseConfirmedHoldFails(t *testing.T) {
	repo := newFakeHoldRepo()
	ledgerSvc := &fakeLedger{}
	m := newTestManager(repo, ledgerSvc, &fakeAuditor{})

	hold := activeHold(time.Now().UTC().Add(time.Hour))
	hold.State = StateConfirmed
	repo.put(hold)

	err := m.ReleaseHold(context.Background(), hold.ID)
	if !errors.Is(err, ErrHoldNotActive) {
		t.Fatalf("releasing a confirmed hold = %v, want ErrHoldNotActive", err)
	}
	if ledgerSvc.releaseCalls != 0 {
		t.Errorf("ledger released %d times, want 0", ledgerSvc.releaseCalls)
	}
}

func TestConfirmHoldTransfersSlot(t *testing.T) {
	repo := newFakeHoldRepo()
	ledgerSvc := &fakeLedger{}
	auditor := &fakeAuditor{}
	m := newTestManager(repo, ledgerSvc, auditor)

	hold := repo.put(activeHold(time.Now().UTC().Add(time.Hour)))

	confirmed, err := m.ConfirmHold(context.Background(), hold.ID)
	if err != nil {
		t.Fatalf("ConfirmHold failed: %v", err)
	}
	if confirmed.State != StateConfirmed {
		t.Errorf("state = %s, want CONFIRMED", confirmed.State)
	}
	if ledgerSvc.confirmCalls != 1 {
		t.Errorf("ledger confirmed %d slots, want 1", ledgerSvc.confirmCalls)
	}
	if auditor.count(audit.EventHoldConfirmed) != 1 {
		t.Errorf("recorded %d HoldConfirmed events, want 1", auditor.count(audit.EventHoldConfirmed))
	}

	// CONFIRMED is terminal; a second confirm must fail without another
	// ledger transfer
	if _, err := m.ConfirmHold(context.Background(), hold.ID); !errors.Is(err, ErrHoldNotActive) {
		t.Fatalf("second confirm = %v, want ErrHoldNotActive", err)
	}
	if ledgerSvc.confirmCalls != 1 {
		t.Errorf("ledger confirmed %d slots after duplicate confirm, want 1", ledgerSvc.confirmCalls)
	}
}

func TestLazyExpiryReleasesExactlyOnce(t *testing.T) {
	repo := newFakeHoldRepo()
	ledgerSvc := &fakeLedger{}
	auditor := &fakeAuditor{}
	m := newTestManager(repo, ledgerSvc, auditor)

	hold := repo.put(activeHold(time.Now().UTC().Add(-time.Minute)))

	read, err := m.GetHold(context.Background(), hold.ID)
	if err != nil {
		t.Fatalf("GetHold failed: %v", err)
	}
	if read.State != StateExpired {
		t.Errorf("overdue hold read as %s, want EXPIRED", read.State)
	}
	if ledgerSvc.releaseCalls != 1 {
		t.Errorf("ledger released %d times on first read, want 1", ledgerSvc.releaseCalls)
	}
	if auditor.count(audit.EventHoldExpired) != 1 {
		t.Errorf("recorded %d HoldExpired events, want 1", auditor.count(audit.EventHoldExpired))
	}

	// A second read finds the terminal state and must not release again
	if _, err := m.GetHold(context.Background(), hold.ID); err != nil {
		t.Fatalf("second GetHold failed: %v", err)
	}
	if ledgerSvc.releaseCalls != 1 {
		t.Errorf("ledger released %d times after second read, want still 1", ledgerSvc.releaseCalls)
	}
}

func TestLazyExpiryLostRaceDoesNotRelease(t *testing.T) {
	// When a concurrent expirer wins the ACTIVE->EXPIRED transition, the
	// losing reader must not decrement the ledger a second time
	repo := newFakeHoldRepo()
	repo.loseTransitions = true
	ledgerSvc := &fakeLedger{}
	m := newTestManager(repo, ledgerSvc, &fakeAuditor{})

	hold := repo.put(activeHold(time.Now().UTC().Add(-time.Minute)))

	read, err := m.GetHold(context.Background(), hold.ID)
	if err != nil {
		t.Fatalf("GetHold failed: %v", err)
	}
	if read.State != StateExpired {
		t.Errorf("overdue hold read as %s, want EXPIRED", read.State)
	}
	if ledgerSvc.releaseCalls != 0 {
		t.Errorf("losing reader released %d times, want 0", ledgerSvc.releaseCalls)
	}
}

func TestConfirmExpiredHoldFails(t *testing.T) {
	repo := newFakeHoldRepo()
	ledgerSvc := &fakeLedger{}
	m := newTestManager(repo, ledgerSvc, &fakeAuditor{})

	hold := repo.put(activeHold(time.Now().UTC().Add(-time.Minute)))

	_, err := m.ConfirmHold(context.Background(), hold.ID)
	if !errors.Is(err, ErrHoldNotActive) {
		t.Fatalf("confirming an expired hold = %v, want ErrHoldNotActive", err)
	}
	if ledgerSvc.confirmCalls != 0 {
		t.Errorf("ledger confirmed %d slots, want 0", ledgerSvc.confirmCalls)
	}
	// The read that detected expiry returns the slot to the pool
	if ledgerSvc.releaseCalls != 1 {
		t.Errorf("ledger released %d times, want 1", ledgerSvc.releaseCalls)
	}
}

func TestExpireStaleSweepsOnlyOverdueHolds(t *testing.T) {
	repo := newFakeHoldRepo()
	ledgerSvc := &fakeLedger{}
	auditor := &fakeAuditor{}
	m := newTestManager(repo, ledgerSvc, auditor)

	repo.put(activeHold(time.Now().UTC().Add(-2 * time.Minute)))
	repo.put(activeHold(time.Now().UTC().Add(-time.Minute)))
	live := repo.put(activeHold(time.Now().UTC().Add(time.Hour)))

	processed, err := m.ExpireStale(context.Background(), 10)
	if err != nil {
		t.Fatalf("ExpireStale failed: %v", err)
	}
	if processed != 2 {
		t.Errorf("processed %d holds, want 2", processed)
	}
	if ledgerSvc.releaseCalls != 2 {
		t.Errorf("ledger released %d times, want 2", ledgerSvc.releaseCalls)
	}
	if repo.holds[live.ID].State != StateActive {
		t.Errorf("live hold swept to %s, want still ACTIVE", repo.holds[live.ID].State)
	}
}
