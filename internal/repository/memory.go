package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/flighthold/internal/domain"
)

// In-memory repositories used when no database is configured. Every method
// holds the table lock for its whole duration, so each call is atomic, and
// records are copied in and out so callers never share pointers with the table.

type MemoryFlightRepository struct {
	mu      sync.RWMutex
	flights map[string]domain.Flight
}

func NewMemoryFlightRepository() *MemoryFlightRepository {
	return &MemoryFlightRepository{flights: make(map[string]domain.Flight)}
}

func (r *MemoryFlightRepository) List(_ context.Context) ([]domain.Flight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flights := make([]domain.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		flights = append(flights, cloneFlight(f))
	}
	sort.Slice(flights, func(i, j int) bool {
		if !flights[i].CreatedAt.Equal(flights[j].CreatedAt) {
			return flights[i].CreatedAt.Before(flights[j].CreatedAt)
		}
		return flights[i].ID < flights[j].ID
	})
	return flights, nil
}

func (r *MemoryFlightRepository) GetByID(_ context.Context, id string) (*domain.Flight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flights[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "flight with id=%s not found", id)
	}
	c := cloneFlight(f)
	return &c, nil
}

func (r *MemoryFlightRepository) Save(_ context.Context, f *domain.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if old, ok := r.flights[f.ID]; ok {
		f.CreatedAt = old.CreatedAt
	} else {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	r.flights[f.ID] = cloneFlight(*f)
	return nil
}

func (r *MemoryFlightRepository) UpdateDetails(_ context.Context, f *domain.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.flights[f.ID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "flight with id=%s not found", f.ID)
	}
	stored.Name = f.Name
	stored.ImageURL = f.ImageURL
	stored.Description = f.Description
	stored.PricePerPerson = f.PricePerPerson
	stored.DepartureFrom = f.DepartureFrom
	stored.ArriveTo = f.ArriveTo
	stored.DepartureTime = f.DepartureTime
	stored.Seats = f.Seats
	stored.UpdatedAt = time.Now()
	r.flights[f.ID] = stored
	*f = cloneFlight(stored)
	return nil
}

func (r *MemoryFlightRepository) Release(_ context.Context, id, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flights[id]
	if !ok {
		return domain.NewError(domain.KindNotFound, "flight with id=%s not found", id)
	}
	if !f.IsReserved || f.CurrentReservedTo == nil || *f.CurrentReservedTo != holder {
		return domain.NewError(domain.KindNotBooked, "flight %s is not held by %s", id, holder)
	}
	f.Release()
	f.UpdatedAt = time.Now()
	r.flights[id] = f
	return nil
}

func (r *MemoryFlightRepository) Delete(_ context.Context, id, creator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flights[id]
	if !ok {
		return domain.NewError(domain.KindNotFound, "flight with id=%s not found", id)
	}
	if f.Creator != creator || f.IsReserved {
		return deleteRefused(id, creator, &f)
	}
	delete(r.flights, id)
	return nil
}

// hold is called by MemoryBookingRepository.ConfirmPending with the booking
// lock held.
func (r *MemoryFlightRepository) hold(id, holder string, ends time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flights[id]
	if !ok {
		return domain.NewError(domain.KindNotFound, "flight with id=%s not found", id)
	}
	f.Hold(holder, ends)
	f.UpdatedAt = time.Now()
	r.flights[id] = f
	return nil
}

// MemoryBookingRepository marks flights held through the flight table it was
// built with. Its lock is always taken before the flight table's.
type MemoryBookingRepository struct {
	mu        sync.Mutex
	flights   *MemoryFlightRepository
	pending   map[uint64]domain.Booking
	confirmed map[string]domain.Booking
}

func NewMemoryBookingRepository(flights *MemoryFlightRepository) *MemoryBookingRepository {
	return &MemoryBookingRepository{
		flights:   flights,
		pending:   make(map[uint64]domain.Booking),
		confirmed: make(map[string]domain.Booking),
	}
}

func (r *MemoryBookingRepository) CreatePending(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b.Status = domain.BookingStatusPaymentPending
	b.CreatedAt = time.Now()
	r.pending[b.Memo] = cloneBooking(*b)
	return nil
}

func (r *MemoryBookingRepository) TakePending(_ context.Context, memo uint64) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.pending[memo]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "there is no pending booking with memo=%d", memo)
	}
	delete(r.pending, memo)
	return &b, nil
}

func (r *MemoryBookingRepository) ListPending(_ context.Context) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bookings := make([]domain.Booking, 0, len(r.pending))
	for _, b := range r.pending {
		bookings = append(bookings, cloneBooking(b))
	}
	sortBookings(bookings)
	return bookings, nil
}

func (r *MemoryBookingRepository) ConfirmPending(_ context.Context, c Confirmation) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.pending[c.Memo]
	if !ok || b.FlightID != c.FlightID || b.Payer != c.Payer || b.NoOfPersons != c.NoOfPersons {
		return nil, pendingNotFound(c)
	}
	if err := r.flights.hold(c.FlightID, c.Payer, c.HoldEnds); err != nil {
		return nil, err
	}
	delete(r.pending, c.Memo)

	confirmed := b.Complete(c.Block)
	confirmed.Amount = c.Amount
	confirmed.CreatedAt = time.Now()
	r.confirmed[confirmed.Payer] = cloneBooking(confirmed)
	return &confirmed, nil
}

func (r *MemoryBookingRepository) ListConfirmed(_ context.Context) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bookings := make([]domain.Booking, 0, len(r.confirmed))
	for _, b := range r.confirmed {
		bookings = append(bookings, cloneBooking(b))
	}
	sortBookings(bookings)
	return bookings, nil
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "user with id=%s not found", id)
	}
	c := cloneUser(u)
	return &c, nil
}

func (r *MemoryUserRepository) Save(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.BookedFlights == nil {
		u.BookedFlights = []string{}
	}
	r.users[u.ID] = cloneUser(*u)
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return domain.NewError(domain.KindNotFound, "user with id=%s not found", id)
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) AddBookedFlight(_ context.Context, userID, flightID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "user with id=%s not found", userID)
	}
	u = cloneUser(u)
	u.BookedFlights = append(u.BookedFlights, flightID)
	r.users[userID] = u
	return nil
}

func cloneFlight(f domain.Flight) domain.Flight {
	if f.CurrentReservedTo != nil {
		holder := *f.CurrentReservedTo
		f.CurrentReservedTo = &holder
	}
	if f.CurrentReservationEnds != nil {
		ends := *f.CurrentReservationEnds
		f.CurrentReservationEnds = &ends
	}
	return f
}

func cloneBooking(b domain.Booking) domain.Booking {
	if b.PaidAtBlock != nil {
		block := *b.PaidAtBlock
		b.PaidAtBlock = &block
	}
	return b
}

func cloneUser(u domain.User) domain.User {
	u.BookedFlights = append([]string{}, u.BookedFlights...)
	return u
}

func sortBookings(bookings []domain.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		return bookings[i].Memo < bookings[j].Memo
	})
}

var (
	_ FlightRepository  = (*MemoryFlightRepository)(nil)
	_ BookingRepository = (*MemoryBookingRepository)(nil)
	_ UserRepository    = (*MemoryUserRepository)(nil)
)
