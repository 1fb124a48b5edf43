package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/pkg/geo"
)

// MockProvider is an in-memory adapter used by tests and demo flows. Bookings
// are idempotent on the request key, and CreateBooking failures can be
// injected per item id.
type MockProvider struct {
	id           string
	providerType string

	mu        sync.Mutex
	nextID    int
	items     map[string]Details
	bookings  map[string]*CreateBookingResult // by provider booking id
	byKey     map[string]*CreateBookingResult // by idempotency key
	failItems map[string]error                // CreateBooking failure injection
	healthy   bool
}

func NewMockProvider(id, providerType string) *MockProvider {
	return &MockProvider{
		id:           id,
		providerType: providerType,
		items:        make(map[string]Details),
		bookings:     make(map[string]*CreateBookingResult),
		byKey:        make(map[string]*CreateBookingResult),
		failItems:    make(map[string]error),
		healthy:      true,
	}
}

func (p *MockProvider) ID() string   { return p.id }
func (p *MockProvider) Type() string { return p.providerType }

// AddItem seeds an inventory entry.
func (p *MockProvider) AddItem(d Details) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[d.ID] = d
}

// FailCreateBooking makes CreateBooking for the item fail with err until cleared.
func (p *MockProvider) FailCreateBooking(itemID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failItems, itemID)
		return
	}
	p.failItems[itemID] = err
}

// SetHealthy flips the health check answer.
func (p *MockProvider) SetHealthy(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = ok
}

func (p *MockProvider) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []SearchResult
	for _, d := range p.items {
		if opts.Location != nil && d.Location != nil {
			if !geo.WithinKm(*d.Location, *opts.Location, opts.WithinKm) {
				continue
			}
		}
		out = append(out, SearchResult{
			ID:       d.ID,
			Name:     d.Name,
			Location: d.Location,
			Price:    d.Price,
			Rating:   d.Rating,
		})
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (p *MockProvider) GetDetails(ctx context.Context, itemID string) (*Details, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.items[itemID]
	if !ok {
		return nil, fmt.Errorf("mock provider %s: item %s not found", p.id, itemID)
	}
	return &d, nil
}

func (p *MockProvider) CheckAvailability(ctx context.Context, itemID, date string, travelers model.Travelers) (*Availability, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.items[itemID]
	if !ok {
		return nil, fmt.Errorf("mock provider %s: item %s not found", p.id, itemID)
	}
	return &Availability{
		Available: d.Availability,
		Slots: []Slot{
			{Time: "10:00", Available: d.Availability},
			{Time: "14:00", Available: d.Availability},
		},
	}, nil
}

func (p *MockProvider) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Idempotent replay returns the original result.
	if res, ok := p.byKey[req.IdempotencyKey]; ok {
		out := *res
		return &out, nil
	}

	if err, ok := p.failItems[req.ProviderItemID]; ok {
		return nil, err
	}
	d, ok := p.items[req.ProviderItemID]
	if !ok {
		return nil, fmt.Errorf("mock provider %s: item %s not found", p.id, req.ProviderItemID)
	}

	p.nextID++
	res := &CreateBookingResult{
		BookingID:          fmt.Sprintf("%s-BKG-%03d", p.id, p.nextID),
		Status:             model.BookingConfirmed,
		Price:              d.Price,
		Policies:           d.Policies,
		VoucherURL:         fmt.Sprintf("https://vouchers.example/%s/%d", p.id, p.nextID),
		ConfirmationNumber: fmt.Sprintf("CNF-%s-%03d", p.id, p.nextID),
	}
	p.bookings[res.BookingID] = res
	p.byKey[req.IdempotencyKey] = res
	out := *res
	return &out, nil
}

func (p *MockProvider) GetBookingStatus(ctx context.Context, bookingID string) (model.BookingStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok := p.bookings[bookingID]
	if !ok {
		return "", fmt.Errorf("mock provider %s: booking %s not found", p.id, bookingID)
	}
	return res.Status, nil
}

func (p *MockProvider) CancelBooking(ctx context.Context, bookingID string) (*CancelResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok := p.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("mock provider %s: booking %s not found", p.id, bookingID)
	}
	res.Status = model.BookingCanceled
	refund := res.Price
	return &CancelResult{
		BookingID:    bookingID,
		RefundAmount: &refund,
		RefundStatus: RefundFull,
	}, nil
}

// mockWebhookPayload is the raw JSON shape the mock emits.
type mockWebhookPayload struct {
	EventType string         `json:"event_type"`
	BookingID string         `json:"booking_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

func (p *MockProvider) HandleWebhook(ctx context.Context, payload []byte) (*WebhookEvent, error) {
	var raw mockWebhookPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("mock provider %s: parse webhook: %w", p.id, err)
	}
	typ := WebhookEventType(raw.EventType)
	switch typ {
	case WebhookBookingConfirmed, WebhookBookingCanceled, WebhookPriceChanged, WebhookAvailabilityChanged:
	default:
		return nil, fmt.Errorf("mock provider %s: unknown webhook event %q", p.id, raw.EventType)
	}
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &WebhookEvent{
		Type:              typ,
		ProviderBookingID: raw.BookingID,
		Timestamp:         ts,
		Payload:           raw.Payload,
	}, nil
}

func (p *MockProvider) HealthCheck(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}

// PriceDelta returns |a - b| for ranking alternatives. Currencies are assumed
// comparable at this layer.
func PriceDelta(a, b model.Money) float64 {
	av, _ := a.Amount.Float64()
	bv, _ := b.Amount.Float64()
	return math.Abs(av - bv)
}

var _ Provider = (*MockProvider)(nil)
