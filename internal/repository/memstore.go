package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiva/wayplan/internal/model"
)

// MemStore is an in-memory Store. It backs unit tests and local runs without
// PostgreSQL. Transactions snapshot the whole state up front and restore it
// when fn fails, so rollback-on-error behaves like the real store. Per-trip
// serialization is approximated with one transaction at a time; PostgreSQL
// provides the real row-level isolation in production.
type MemStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	trips     map[uuid.UUID]model.Trip
	prefs     map[uuid.UUID]model.TripPreferences
	itins     map[uuid.UUID]model.Itinerary
	items     map[uuid.UUID]model.ItineraryItem
	versions  map[uuid.UUID][]model.ItineraryVersion
	bookings  map[uuid.UUID]model.Booking
	history   map[uuid.UUID][]model.BookingStateHistory
	idem      map[string]model.IdempotencyRecord
	events    map[uuid.UUID]model.EventSignal
	triggers  map[uuid.UUID]model.ReplanTrigger
	proposals map[uuid.UUID]model.ReplanProposal
	apps      map[uuid.UUID]model.ReplanApplication

	// failures maps a method name to an error returned (once) on the next
	// call. Tests use this to force mid-transaction storage failures.
	failures map[string]error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		trips:     make(map[uuid.UUID]model.Trip),
		prefs:     make(map[uuid.UUID]model.TripPreferences),
		itins:     make(map[uuid.UUID]model.Itinerary),
		items:     make(map[uuid.UUID]model.ItineraryItem),
		versions:  make(map[uuid.UUID][]model.ItineraryVersion),
		bookings:  make(map[uuid.UUID]model.Booking),
		history:   make(map[uuid.UUID][]model.BookingStateHistory),
		idem:      make(map[string]model.IdempotencyRecord),
		events:    make(map[uuid.UUID]model.EventSignal),
		triggers:  make(map[uuid.UUID]model.ReplanTrigger),
		proposals: make(map[uuid.UUID]model.ReplanProposal),
		apps:      make(map[uuid.UUID]model.ReplanApplication),
		failures:  make(map[string]error),
	}
}

// FailOnce makes the next call to the named method return err.
func (s *MemStore) FailOnce(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *MemStore) failure(method string) error {
	if err, ok := s.failures[method]; ok {
		delete(s.failures, method)
		return err
	}
	return nil
}

// ─── Transactional scope ────────────────────────────────────

type memSnapshot struct {
	trips     map[uuid.UUID]model.Trip
	prefs     map[uuid.UUID]model.TripPreferences
	itins     map[uuid.UUID]model.Itinerary
	items     map[uuid.UUID]model.ItineraryItem
	versions  map[uuid.UUID][]model.ItineraryVersion
	bookings  map[uuid.UUID]model.Booking
	history   map[uuid.UUID][]model.BookingStateHistory
	idem      map[string]model.IdempotencyRecord
	events    map[uuid.UUID]model.EventSignal
	triggers  map[uuid.UUID]model.ReplanTrigger
	proposals map[uuid.UUID]model.ReplanProposal
	apps      map[uuid.UUID]model.ReplanApplication
}

func (s *MemStore) snapshot() *memSnapshot {
	snap := &memSnapshot{
		trips:     make(map[uuid.UUID]model.Trip, len(s.trips)),
		prefs:     make(map[uuid.UUID]model.TripPreferences, len(s.prefs)),
		itins:     make(map[uuid.UUID]model.Itinerary, len(s.itins)),
		items:     make(map[uuid.UUID]model.ItineraryItem, len(s.items)),
		versions:  make(map[uuid.UUID][]model.ItineraryVersion, len(s.versions)),
		bookings:  make(map[uuid.UUID]model.Booking, len(s.bookings)),
		history:   make(map[uuid.UUID][]model.BookingStateHistory, len(s.history)),
		idem:      make(map[string]model.IdempotencyRecord, len(s.idem)),
		events:    make(map[uuid.UUID]model.EventSignal, len(s.events)),
		triggers:  make(map[uuid.UUID]model.ReplanTrigger, len(s.triggers)),
		proposals: make(map[uuid.UUID]model.ReplanProposal, len(s.proposals)),
		apps:      make(map[uuid.UUID]model.ReplanApplication, len(s.apps)),
	}
	for k, v := range s.trips {
		snap.trips[k] = v
	}
	for k, v := range s.prefs {
		snap.prefs[k] = v
	}
	for k, v := range s.itins {
		snap.itins[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = v.Clone()
	}
	for k, v := range s.versions {
		snap.versions[k] = append([]model.ItineraryVersion(nil), v...)
	}
	for k, v := range s.bookings {
		snap.bookings[k] = v
	}
	for k, v := range s.history {
		snap.history[k] = append([]model.BookingStateHistory(nil), v...)
	}
	for k, v := range s.idem {
		snap.idem[k] = v
	}
	for k, v := range s.events {
		snap.events[k] = v
	}
	for k, v := range s.triggers {
		snap.triggers[k] = v
	}
	for k, v := range s.proposals {
		snap.proposals[k] = v
	}
	for k, v := range s.apps {
		snap.apps[k] = v
	}
	return snap
}

func (s *MemStore) restore(snap *memSnapshot) {
	s.trips = snap.trips
	s.prefs = snap.prefs
	s.itins = snap.itins
	s.items = snap.items
	s.versions = snap.versions
	s.bookings = snap.bookings
	s.history = snap.history
	s.idem = snap.idem
	s.events = snap.events
	s.triggers = snap.triggers
	s.proposals = snap.proposals
	s.apps = snap.apps
}

// InTripTx serializes transactions and restores the pre-state when fn errors.
func (s *MemStore) InTripTx(ctx context.Context, tripID uuid.UUID, fn func(tx TxStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if _, ok := s.trips[tripID]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemStore) HealthCheck(ctx context.Context) error { return nil }

// ─── Trips ──────────────────────────────────────────────────

func (s *MemStore) CreateTrip(ctx context.Context, trip *model.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateTrip"); err != nil {
		return err
	}
	if err := trip.Validate(); err != nil {
		return err
	}
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	now := time.Now()
	trip.CreatedAt, trip.UpdatedAt = now, now
	s.trips[trip.ID] = *trip
	return nil
}

func (s *MemStore) GetTrip(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemStore) UpdateTripStatus(ctx context.Context, id uuid.UUID, status model.TripStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	s.trips[id] = t
	return nil
}

func (s *MemStore) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[id]; !ok {
		return ErrNotFound
	}
	delete(s.trips, id)
	delete(s.prefs, id)
	delete(s.itins, id)
	delete(s.versions, id)
	for itemID, it := range s.items {
		if it.TripID == id {
			delete(s.items, itemID)
		}
	}
	for bID, b := range s.bookings {
		if b.TripID == id {
			delete(s.bookings, bID)
			delete(s.history, bID)
		}
	}
	for eID, e := range s.events {
		if e.TripID == id {
			delete(s.events, eID)
		}
	}
	for tID, t := range s.triggers {
		if t.TripID == id {
			delete(s.triggers, tID)
		}
	}
	for pID, p := range s.proposals {
		if p.TripID == id {
			delete(s.proposals, pID)
		}
	}
	for aID, a := range s.apps {
		if a.TripID == id {
			delete(s.apps, aID)
		}
	}
	return nil
}

// ─── Preferences ────────────────────────────────────────────

func (s *MemStore) UpsertPreferences(ctx context.Context, prefs *model.TripPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[prefs.TripID]; !ok {
		return ErrNotFound
	}
	s.prefs[prefs.TripID] = *prefs
	return nil
}

func (s *MemStore) GetPreferences(ctx context.Context, tripID uuid.UUID) (*model.TripPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[tripID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// ─── Itinerary ──────────────────────────────────────────────

func (s *MemStore) GetItinerary(ctx context.Context, tripID uuid.UUID) (*model.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.itins[tripID]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (s *MemStore) UpsertItinerary(ctx context.Context, itin *model.Itinerary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpsertItinerary"); err != nil {
		return err
	}
	if prev, ok := s.itins[itin.TripID]; ok && itin.Version <= prev.Version {
		return ErrConflict
	}
	s.itins[itin.TripID] = *itin
	return nil
}

func (s *MemStore) SetItineraryVersion(ctx context.Context, tripID uuid.UUID, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SetItineraryVersion"); err != nil {
		return err
	}
	it, ok := s.itins[tripID]
	if !ok {
		return ErrNotFound
	}
	it.Version = version
	s.itins[tripID] = it
	return nil
}

func (s *MemStore) ListItems(ctx context.Context, tripID uuid.UUID) ([]model.ItineraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ItineraryItem
	for _, it := range s.items {
		if it.TripID == tripID {
			out = append(out, it.Clone())
		}
	}
	sortItems(out)
	return out, nil
}

func (s *MemStore) ListDayItems(ctx context.Context, tripID uuid.UUID, day int) ([]model.ItineraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ItineraryItem
	for _, it := range s.items {
		if it.TripID == tripID && it.Day == day {
			out = append(out, it.Clone())
		}
	}
	sortItems(out)
	return out, nil
}

func (s *MemStore) GetItem(ctx context.Context, itemID uuid.UUID) (*model.ItineraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	c := it.Clone()
	return &c, nil
}

func (s *MemStore) InsertItem(ctx context.Context, item *model.ItineraryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertItem"); err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	now := time.Now()
	item.CreatedAt, item.UpdatedAt = now, now
	s.items[item.ID] = item.Clone()
	return nil
}

func (s *MemStore) UpdateItem(ctx context.Context, item *model.ItineraryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdateItem"); err != nil {
		return err
	}
	if _, ok := s.items[item.ID]; !ok {
		return ErrNotFound
	}
	item.UpdatedAt = time.Now()
	s.items[item.ID] = item.Clone()
	return nil
}

func (s *MemStore) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteItem"); err != nil {
		return err
	}
	if _, ok := s.items[itemID]; !ok {
		return ErrNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *MemStore) DeleteUnpinnedItems(ctx context.Context, tripID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteUnpinnedItems"); err != nil {
		return err
	}
	for id, it := range s.items {
		if it.TripID == tripID && !it.IsPinned {
			delete(s.items, id)
		}
	}
	return nil
}

// ─── Versions ───────────────────────────────────────────────

func (s *MemStore) InsertVersion(ctx context.Context, v *model.ItineraryVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertVersion"); err != nil {
		return err
	}
	existing := s.versions[v.TripID]
	for _, ev := range existing {
		if ev.Version >= v.Version {
			return ErrConflict
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()
	s.versions[v.TripID] = append(existing, *v)
	return nil
}

func (s *MemStore) GetVersion(ctx context.Context, tripID uuid.UUID, version int) (*model.ItineraryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions[tripID] {
		if v.Version == version {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) DeleteVersionsAbove(ctx context.Context, tripID uuid.UUID, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteVersionsAbove"); err != nil {
		return err
	}
	var kept []model.ItineraryVersion
	for _, v := range s.versions[tripID] {
		if v.Version <= version {
			kept = append(kept, v)
		}
	}
	s.versions[tripID] = kept
	return nil
}

func (s *MemStore) ListVersions(ctx context.Context, tripID uuid.UUID) ([]model.ItineraryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.ItineraryVersion(nil), s.versions[tripID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// ─── Bookings ───────────────────────────────────────────────

func (s *MemStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateBooking"); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.bookings[b.ID] = *b
	return nil
}

func (s *MemStore) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemStore) GetBookingByExternalID(ctx context.Context, externalID string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ExternalBookingID == externalID && externalID != "" {
			out := b
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) ListTripBookings(ctx context.Context, tripID uuid.UUID) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.TripID == tripID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) UpdateBooking(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdateBooking"); err != nil {
		return err
	}
	if _, ok := s.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now()
	s.bookings[b.ID] = *b
	return nil
}

func (s *MemStore) AppendBookingHistory(ctx context.Context, h *model.BookingStateHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("AppendBookingHistory"); err != nil {
		return err
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}
	s.history[h.BookingID] = append(s.history[h.BookingID], *h)
	return nil
}

func (s *MemStore) ListBookingHistory(ctx context.Context, bookingID uuid.UUID) ([]model.BookingStateHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BookingStateHistory(nil), s.history[bookingID]...), nil
}

func (s *MemStore) PutIdempotencyRecord(ctx context.Context, rec *model.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("PutIdempotencyRecord"); err != nil {
		return err
	}
	if _, ok := s.idem[rec.Key]; ok {
		return ErrConflict
	}
	rec.CreatedAt = time.Now()
	s.idem[rec.Key] = *rec
	return nil
}

func (s *MemStore) GetIdempotencyRecord(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idem[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// ─── Events, triggers, proposals, applications ──────────────

func (s *MemStore) InsertEventSignal(ctx context.Context, e *model.EventSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertEventSignal"); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	s.events[e.ID] = *e
	return nil
}

func (s *MemStore) GetEventSignal(ctx context.Context, id uuid.UUID) (*model.EventSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemStore) MarkEventProcessed(ctx context.Context, id uuid.UUID, replanTriggered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	e.Processed = true
	e.ReplanTriggered = replanTriggered
	s.events[id] = e
	return nil
}

func (s *MemStore) ListUnprocessedEvents(ctx context.Context, tripID uuid.UUID) ([]model.EventSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EventSignal
	for _, e := range s.events {
		if e.TripID == tripID && !e.Processed {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) InsertTrigger(ctx context.Context, t *model.ReplanTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertTrigger"); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	s.triggers[t.ID] = *t
	return nil
}

func (s *MemStore) GetTrigger(ctx context.Context, id uuid.UUID) (*model.ReplanTrigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemStore) MarkTriggerProcessed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("MarkTriggerProcessed"); err != nil {
		return err
	}
	t, ok := s.triggers[id]
	if !ok {
		return ErrNotFound
	}
	t.Processed = true
	s.triggers[id] = t
	return nil
}

func (s *MemStore) ListOpenTriggers(ctx context.Context, tripID uuid.UUID) ([]model.ReplanTrigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ReplanTrigger
	for _, t := range s.triggers {
		if t.TripID == tripID && !t.Processed {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) InsertProposal(ctx context.Context, p *model.ReplanProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertProposal"); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	s.proposals[p.ID] = *p
	return nil
}

func (s *MemStore) GetProposal(ctx context.Context, id uuid.UUID) (*model.ReplanProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemStore) ListProposalsByTrigger(ctx context.Context, triggerID uuid.UUID) ([]model.ReplanProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ReplanProposal
	for _, p := range s.proposals {
		if p.TriggerID == triggerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *MemStore) InsertApplication(ctx context.Context, a *model.ReplanApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertApplication"); err != nil {
		return err
	}
	for _, existing := range s.apps {
		if existing.IdempotencyKey == a.IdempotencyKey && a.IdempotencyKey != "" {
			return ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	s.apps[a.ID] = *a
	return nil
}

func (s *MemStore) GetApplication(ctx context.Context, id uuid.UUID) (*model.ReplanApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemStore) GetApplicationByKey(ctx context.Context, idempotencyKey string) (*model.ReplanApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.apps {
		if a.IdempotencyKey == idempotencyKey && idempotencyKey != "" {
			out := a
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) UpdateApplication(ctx context.Context, a *model.ReplanApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdateApplication"); err != nil {
		return err
	}
	if _, ok := s.apps[a.ID]; !ok {
		return ErrNotFound
	}
	s.apps[a.ID] = *a
	return nil
}

// ─── Helpers ────────────────────────────────────────────────

func sortItems(items []model.ItineraryItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Day != items[j].Day {
			return items[i].Day < items[j].Day
		}
		return items[i].Order < items[j].Order
	})
}

var _ Store = (*MemStore)(nil)
