package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/ledger"
	"github.com/Domenick1991/flighthold/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	selfPrincipal  = "rrkah-fqaaa-aaaaa-aaaaq-cai"
	alice          = "2vxsx-fae"
	bob            = "ryjl3-tyaaa-aaaaa-aaaba-cai"
	testFee        = uint64(10)
	testLedgerFee  = uint64(3)
	testFlightID   = "flight-1"
	testPrice      = uint64(100)
	testHoldPeriod = time.Minute
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeScheduler keeps armed actions until the test fires them.
type fakeScheduler struct {
	mu        sync.Mutex
	actions   map[uint64]func()
	delays    map[uint64]time.Duration
	cancelled []uint64
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{actions: make(map[uint64]func()), delays: make(map[uint64]time.Duration)}
}

func (s *fakeScheduler) Schedule(key uint64, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[key] = fn
	s.delays[key] = delay
}

func (s *fakeScheduler) Cancel(key uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, key)
	_, ok := s.actions[key]
	delete(s.actions, key)
	return ok
}

func (s *fakeScheduler) fire(key uint64) bool {
	s.mu.Lock()
	fn, ok := s.actions[key]
	delete(s.actions, key)
	s.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

func (s *fakeScheduler) armed(key uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.actions[key]
	return ok
}

// fakeLedger is an in-memory ledger.Client.
type fakeLedger struct {
	mu          sync.Mutex
	blocks      map[uint64]ledger.Block
	fee         uint64
	transfers   []ledger.TransferArgs
	transferErr error
	self        ledger.AccountIdentifier
}

func newFakeLedger(t *testing.T) *fakeLedger {
	return &fakeLedger{
		blocks: make(map[uint64]ledger.Block),
		fee:    testLedgerFee,
		self:   accountOf(t, selfPrincipal),
	}
}

func (l *fakeLedger) pay(t *testing.T, index uint64, from string, amount, memo uint64) {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks[index] = ledger.Block{
		Index:    index,
		Memo:     memo,
		Transfer: &ledger.Transfer{From: accountOf(t, from), To: l.self, Amount: amount},
	}
}

func (l *fakeLedger) QueryBlocks(_ context.Context, start, length uint64) ([]ledger.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ledger.Block
	for i := start; i < start+length; i++ {
		if b, ok := l.blocks[i]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (l *fakeLedger) Transfer(_ context.Context, args ledger.TransferArgs) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transferErr != nil {
		return 0, l.transferErr
	}
	l.transfers = append(l.transfers, args)
	return uint64(1000 + len(l.transfers)), nil
}

func (l *fakeLedger) TransferFee(context.Context) (uint64, error) {
	return l.fee, nil
}

func (l *fakeLedger) sent() []ledger.TransferArgs {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.TransferArgs(nil), l.transfers...)
}

func accountOf(t *testing.T, principal string) ledger.AccountIdentifier {
	t.Helper()
	p, err := ledger.ParsePrincipal(principal)
	require.NoError(t, err)
	return ledger.AccountOf(p, ledger.Subaccount{})
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type fixture struct {
	service   *Service
	flights   *repository.MemoryFlightRepository
	bookings  *repository.MemoryBookingRepository
	ledger    *fakeLedger
	scheduler *fakeScheduler
	clock     *testClock
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()

	flights := repository.NewMemoryFlightRepository()
	f := &fixture{
		flights:   flights,
		bookings:  repository.NewMemoryBookingRepository(flights),
		ledger:    newFakeLedger(t),
		scheduler: newFakeScheduler(),
		clock:     &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	self, err := ledger.ParsePrincipal(selfPrincipal)
	require.NoError(t, err)
	gateway := ledger.NewGateway(f.ledger, self, zap.NewNop())

	base := []ServiceOption{
		WithClock(f.clock.Now),
		WithHoldDuration(testHoldPeriod),
	}
	f.service = NewReservationService(f.flights, f.bookings, gateway, f.scheduler, zap.NewNop(), append(base, opts...)...)

	require.NoError(t, f.flights.Save(context.Background(), &domain.Flight{
		ID:             testFlightID,
		Name:           "KL1001",
		PricePerPerson: testPrice,
		DepartureFrom:  "Amsterdam",
		ArriveTo:       "London",
		Seats:          120,
		IsAvailable:    true,
		Creator:        bob,
	}))
	return f
}

func (f *fixture) flight(t *testing.T) *domain.Flight {
	t.Helper()
	fl, err := f.flights.GetByID(context.Background(), testFlightID)
	require.NoError(t, err)
	require.True(t, fl.Consistent(), "isReserved must agree with holder and expiry")
	return fl
}

func (f *fixture) pendingCount(t *testing.T) int {
	t.Helper()
	pending, err := f.bookings.ListPending(context.Background())
	require.NoError(t, err)
	return len(pending)
}
