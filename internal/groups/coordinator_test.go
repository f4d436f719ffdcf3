package groups

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"reservely/internal/events"
	"reservely/internal/identity"
)

type fakeEventsRepo struct {
	eventID        uuid.UUID
	defaultType    *events.AccessType
	knownTypes     map[uuid.UUID]bool
	defaultTypeErr error
}

func (f *fakeEventsRepo) GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	if id == f.eventID {
		return &events.Event{ID: id}, nil
	}
	return nil, events.ErrEventNotFound
}

func (f *fakeEventsRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return id == f.eventID, nil
}

func (f *fakeEventsRepo) GetDefaultAccessType(ctx context.Context, eventID uuid.UUID) (*events.AccessType, error) {
	if f.defaultTypeErr != nil {
		return nil, f.defaultTypeErr
	}
	return f.defaultType, nil
}

func (f *fakeEventsRepo) GetAccessType(ctx context.Context, eventID, accessTypeID uuid.UUID) (*events.AccessType, error) {
	if f.knownTypes[accessTypeID] {
		return &events.AccessType{ID: accessTypeID, EventID: eventID}, nil
	}
	return nil, events.ErrAccessTypeNotFound
}

func (f *fakeEventsRepo) Create(ctx context.Context, event *events.Event) error {
	return nil
}

type fakeIdentityRepo struct {
	known map[uuid.UUID]bool
}

func (f *fakeIdentityRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.known[id], nil
}

func (f *fakeIdentityRepo) ResolveMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	resolved := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		resolved[id] = f.known[id]
	}
	return resolved, nil
}

func (f *fakeIdentityRepo) Create(ctx context.Context, participant *identity.Participant) error {
	return nil
}

func newTestCoordinator(eventsRepo events.Repository, identities identity.Repository, maxGroupSize int) *coordinator {
	return &coordinator{
		events:       eventsRepo,
		identities:   identities,
		maxGroupSize: maxGroupSize,
	}
}

func makeRefs(n int) []uuid.UUID {
	refs := make([]uuid.UUID, n)
	for i := range refs {
		refs[i] = uuid.New()
	}
	return refs
}

func TestPartitionAllSeated(t *testing.T) {
	accessType := uuid.New()
	refs := makeRefs(3)
	resolved := []resolvedParticipant{
		{ref: refs[0], accessTypeID: accessType},
		{ref: refs[1], accessTypeID: accessType},
		{ref: refs[2], accessTypeID: accessType},
	}

	granted, failed, shortfalls := partition(resolved, map[uuid.UUID]int{accessType: 5})

	if len(granted) != 3 || len(failed) != 0 {
		t.Fatalf("granted %d failed %d, want 3 and 0", len(granted), len(failed))
	}
	if len(shortfalls) != 0 {
		t.Errorf("expected no shortfalls, got %v", shortfalls)
	}
}

func TestPartitionShortfallFallsOnLastListed(t *testing.T) {
	// Five participants against three available slots: the first three in
	// request order are seated, the last two miss out
	accessType := uuid.New()
	refs := makeRefs(5)
	resolved := make([]resolvedParticipant, 5)
	for i, ref := range refs {
		resolved[i] = resolvedParticipant{ref: ref, accessTypeID: accessType}
	}

	granted, failed, shortfalls := partition(resolved, map[uuid.UUID]int{accessType: 3})

	if len(granted) != 3 {
		t.Fatalf("granted %d participants, want 3", len(granted))
	}
	for i := 0; i < 3; i++ {
		if granted[i].ref != refs[i] {
			t.Errorf("granted[%d] = %s, want %s (request order)", i, granted[i].ref, refs[i])
		}
	}

	if len(failed) != 2 {
		t.Fatalf("failed %d participants, want 2", len(failed))
	}
	if failed[0].ref != refs[3] || failed[1].ref != refs[4] {
		t.Errorf("failed refs = %v, want the last two in request order", failed)
	}

	if shortfalls[accessType] != 2 {
		t.Errorf("shortfall = %d, want 2", shortfalls[accessType])
	}
}

func TestPartitionPerAccessTypeCounters(t *testing.T) {
	general := uuid.New()
	vip := uuid.New()
	refs := makeRefs(4)
	resolved := []resolvedParticipant{
		{ref: refs[0], accessTypeID: general},
		{ref: refs[1], accessTypeID: vip},
		{ref: refs[2], accessTypeID: general},
		{ref: refs[3], accessTypeID: vip},
	}

	granted, failed, shortfalls := partition(resolved, map[uuid.UUID]int{general: 2, vip: 1})

	if len(granted) != 3 || len(failed) != 1 {
		t.Fatalf("granted %d failed %d, want 3 and 1", len(granted), len(failed))
	}
	if failed[0].ref != refs[3] {
		t.Errorf("failed ref = %s, want the second VIP request %s", failed[0].ref, refs[3])
	}
	if shortfalls[vip] != 1 || shortfalls[general] != 0 {
		t.Errorf("shortfalls = %v, want vip short by 1 only", shortfalls)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	knownRef := uuid.New()
	unknownRef := uuid.New()
	duplicateRef := uuid.New()

	eventsRepo := &fakeEventsRepo{eventID: uuid.New()}
	identities := &fakeIdentityRepo{known: map[uuid.UUID]bool{knownRef: true, duplicateRef: true}}
	c := newTestCoordinator(eventsRepo, identities, 50)

	req := GroupReservationRequest{
		EventID:        uuid.New(), // not the event the repo knows
		GroupLeaderRef: unknownRef,
		Participants: []GroupParticipant{
			{ParticipantRef: knownRef},
			{ParticipantRef: duplicateRef},
			{ParticipantRef: duplicateRef},
			{ParticipantRef: unknownRef},
		},
	}

	err := c.validate(context.Background(), req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}

	// Missing event, unknown leader, duplicate participant, unknown identity
	if len(validationErr.Violations) != 4 {
		t.Errorf("got %d violations, want 4: %v", len(validationErr.Violations), validationErr.Violations)
	}
}

func TestValidateGroupSizeBounds(t *testing.T) {
	eventID := uuid.New()
	leader := uuid.New()
	known := map[uuid.UUID]bool{leader: true}
	refs := makeRefs(51)
	for _, ref := range refs {
		known[ref] = true
	}

	eventsRepo := &fakeEventsRepo{eventID: eventID}
	identities := &fakeIdentityRepo{known: known}
	c := newTestCoordinator(eventsRepo, identities, 50)

	participants := make([]GroupParticipant, len(refs))
	for i, ref := range refs {
		participants[i] = GroupParticipant{ParticipantRef: ref}
	}

	err := c.validate(context.Background(), GroupReservationRequest{
		EventID:        eventID,
		GroupLeaderRef: leader,
		Participants:   participants,
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(validationErr.Violations) != 1 || !strings.Contains(validationErr.Violations[0], "maximum") {
		t.Errorf("unexpected violations: %v", validationErr.Violations)
	}

	err = c.validate(context.Background(), GroupReservationRequest{
		EventID:        eventID,
		GroupLeaderRef: leader,
		Participants:   nil,
	})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError for empty group, got %v", err)
	}
}

func TestResolveAccessTypesFillsDefault(t *testing.T) {
	eventID := uuid.New()
	defaultType := uuid.New()
	vipType := uuid.New()

	eventsRepo := &fakeEventsRepo{
		eventID:     eventID,
		defaultType: &events.AccessType{ID: defaultType, EventID: eventID, IsDefault: true},
		knownTypes:  map[uuid.UUID]bool{defaultType: true, vipType: true},
	}
	c := newTestCoordinator(eventsRepo, &fakeIdentityRepo{}, 50)

	refs := makeRefs(2)
	resolved, err := c.resolveAccessTypes(context.Background(), GroupReservationRequest{
		EventID: eventID,
		Participants: []GroupParticipant{
			{ParticipantRef: refs[0]},
			{ParticipantRef: refs[1], AccessTypeID: &vipType},
		},
	})
	if err != nil {
		t.Fatalf("resolveAccessTypes failed: %v", err)
	}

	if resolved[0].accessTypeID != defaultType {
		t.Errorf("participant without access type got %s, want default %s", resolved[0].accessTypeID, defaultType)
	}
	if resolved[1].accessTypeID != vipType {
		t.Errorf("participant with explicit access type got %s, want %s", resolved[1].accessTypeID, vipType)
	}
}

func TestResolveAccessTypesRejectsForeignType(t *testing.T) {
	eventID := uuid.New()
	foreignType := uuid.New()

	eventsRepo := &fakeEventsRepo{eventID: eventID, knownTypes: map[uuid.UUID]bool{}}
	c := newTestCoordinator(eventsRepo, &fakeIdentityRepo{}, 50)

	_, err := c.resolveAccessTypes(context.Background(), GroupReservationRequest{
		EventID: eventID,
		Participants: []GroupParticipant{
			{ParticipantRef: uuid.New(), AccessTypeID: &foreignType},
		},
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestGroupReservationFailedErrorReportsShortfall(t *testing.T) {
	accessType := uuid.New()
	err := &GroupReservationFailedError{
		EventID:    uuid.New(),
		FailedRefs: makeRefs(2),
		Shortfalls: map[uuid.UUID]int{accessType: 2},
	}

	if !IsGroupReservationFailed(err) {
		t.Fatal("IsGroupReservationFailed should match the typed error")
	}
	if !strings.Contains(err.Error(), "short by 2") {
		t.Errorf("error message must carry the exact shortfall: %s", err.Error())
	}
}
