package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/flighthold/internal/domain"
)

// FlightRepository is the keyed flight table. GetByID and Delete report a
// domain NotFound error for unknown ids.
type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	// Save writes the whole row, hold state included.
	Save(ctx context.Context, flight *domain.Flight) error
	// UpdateDetails writes only the operator-editable columns and refreshes
	// flight with the stored row.
	UpdateDetails(ctx context.Context, flight *domain.Flight) error
	// Release clears the hold if it still belongs to holder, NotBooked otherwise.
	Release(ctx context.Context, id, holder string) error
	// Delete removes a flight owned by creator that is not held.
	Delete(ctx context.Context, id, creator string) error
}

// Confirmation names the pending booking being paid for and the hold it buys.
type Confirmation struct {
	Memo        uint64
	FlightID    string
	Payer       string
	NoOfPersons uint64
	Amount      uint64
	Block       uint64
	HoldEnds    time.Time
}

// BookingRepository holds the pending table (keyed by memo) and the confirmed
// table (keyed by payer).
type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	// TakePending atomically removes and returns the pending booking for memo.
	TakePending(ctx context.Context, memo uint64) (*domain.Booking, error)
	ListPending(ctx context.Context) ([]domain.Booking, error)
	// ConfirmPending moves the pending booking matching c to the confirmed
	// table and marks its flight held, all or nothing. A pending row for
	// another flight, payer or party size is left in place and reported as
	// NotFound.
	ConfirmPending(ctx context.Context, c Confirmation) (*domain.Booking, error)
	ListConfirmed(ctx context.Context) ([]domain.Booking, error)
}

type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	AddBookedFlight(ctx context.Context, userID, flightID string) error
}

func pendingNotFound(c Confirmation) error {
	return domain.NewError(domain.KindNotFound, "there is no pending booking with memo=%d for flight %s", c.Memo, c.FlightID)
}

func deleteRefused(id, creator string, f *domain.Flight) error {
	if f.Creator != creator {
		return domain.NewError(domain.KindNotOwner, "only the creator can delete flight %s", id)
	}
	return domain.NewError(domain.KindBooked, "flight with id %s is currently booked", id)
}
