package reservation

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/kafka"
	"github.com/Domenick1991/flighthold/internal/ledger"
	"github.com/Domenick1991/flighthold/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultPaymentWindow = 120 * time.Second
	DefaultHoldDuration  = 60 * time.Second
)

type ReservationUseCase interface {
	OpenHold(ctx context.Context, caller string, input OpenHoldInput) (*domain.Booking, error)
	ConfirmHold(ctx context.Context, caller string, input ConfirmHoldInput) (*domain.Booking, error)
	EndHold(ctx context.Context, caller, flightID string) (domain.Message, error)
	ListBookings(ctx context.Context) ([]domain.Booking, error)
	ListPending(ctx context.Context) ([]domain.Booking, error)
	ReservationFee() uint64
	CanisterAddress() string
	AddressFromPrincipal(identity string) (string, error)
}

type PaymentGateway interface {
	VerifyPayment(ctx context.Context, sender string, amount, block, memo uint64) (bool, error)
	Refund(ctx context.Context, to string, amount uint64) (domain.Message, error)
	SelfAddress() string
	AddressOf(identity string) (string, error)
}

type Scheduler interface {
	Schedule(key uint64, delay time.Duration, fn func())
	Cancel(key uint64) bool
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// FlightCacheInvalidator drops cached flight listings after a hold changes.
type FlightCacheInvalidator interface {
	InvalidateFlights(ctx context.Context) error
}

type OpenHoldInput struct {
	FlightID    string `json:"flight_id"`
	NoOfPersons uint64 `json:"no_of_persons"`
}

type ConfirmHoldInput struct {
	FlightID    string `json:"flight_id"`
	NoOfPersons uint64 `json:"no_of_persons"`
	Block       uint64 `json:"block"`
	Memo        uint64 `json:"memo,string"`
}

// Service is the reservation engine. All state it touches lives in the
// repositories it was built with; fee is nil when the reservation fee was
// never configured.
type Service struct {
	flights            repository.FlightRepository
	bookings           repository.BookingRepository
	gateway            PaymentGateway
	scheduler          Scheduler
	cache              FlightCacheInvalidator
	producer           Producer
	reservationsTopic  string
	notificationsTopic string
	fee                *uint64
	paymentWindow      time.Duration
	holdDuration       time.Duration
	now                func() time.Time
	log                *zap.Logger

	ending sync.Map
}

type ServiceOption func(*Service)

func WithReservationFee(fee uint64) ServiceOption {
	return func(s *Service) {
		s.fee = &fee
	}
}

func WithPaymentWindow(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.paymentWindow = d
	}
}

func WithHoldDuration(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.holdDuration = d
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func WithProducer(p Producer, topic string) ServiceOption {
	return func(s *Service) {
		s.producer = p
		s.reservationsTopic = topic
	}
}

func WithNotificationsTopic(topic string) ServiceOption {
	return func(s *Service) {
		s.notificationsTopic = topic
	}
}

func WithFlightCache(c FlightCacheInvalidator) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

func NewReservationService(
	flights repository.FlightRepository,
	bookings repository.BookingRepository,
	gateway PaymentGateway,
	scheduler Scheduler,
	log *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		flights:       flights,
		bookings:      bookings,
		gateway:       gateway,
		scheduler:     scheduler,
		paymentWindow: DefaultPaymentWindow,
		holdDuration:  DefaultHoldDuration,
		now:           time.Now,
		log:           log.Named("reservation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenHold registers a pending booking for the flight and arms its expiry.
// The flight itself is not touched until the payment is confirmed.
func (s *Service) OpenHold(ctx context.Context, caller string, input OpenHoldInput) (*domain.Booking, error) {
	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "cannot create the booking: flight=%s not found", input.FlightID)
		}
		return nil, err
	}
	if s.fee == nil {
		return nil, domain.NewError(domain.KindNotFound, "reservation fee not set")
	}
	if flight.IsReserved {
		return nil, domain.NewError(domain.KindBooked, "flight with id %s is currently booked", flight.ID)
	}

	amount, err := s.amountFor(flight, input.NoOfPersons)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		FlightID:    flight.ID,
		Amount:      amount,
		NoOfPersons: input.NoOfPersons,
		Status:      domain.BookingStatusPaymentPending,
		Payer:       caller,
		Memo:        ledger.CorrelationID(flight.ID, caller, s.now()),
	}
	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		return nil, fmt.Errorf("create pending booking: %w", err)
	}

	memo := booking.Memo
	s.scheduler.Schedule(memo, s.paymentWindow, func() { s.discard(memo) })

	s.log.Info("hold opened",
		zap.String("flight_id", flight.ID),
		zap.String("payer", caller),
		zap.Uint64("memo", memo),
		zap.Uint64("amount", amount),
	)
	s.publish(ctx, kafka.EventHoldOpened, booking, nil)
	return booking, nil
}

// ConfirmHold verifies the ledger payment for a pending booking and turns it
// into a confirmed reservation holding the flight.
func (s *Service) ConfirmHold(ctx context.Context, caller string, input ConfirmHoldInput) (*domain.Booking, error) {
	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "cannot complete the purchase: flight=%s not found", input.FlightID)
		}
		return nil, err
	}
	if s.fee == nil {
		return nil, domain.NewError(domain.KindNotFound, "reservation fee not set")
	}

	// The amount follows the flight's current price, not the one quoted
	// when the hold was opened.
	amount, err := s.amountFor(flight, input.NoOfPersons)
	if err != nil {
		return nil, err
	}

	verified, err := s.gateway.VerifyPayment(ctx, caller, amount, input.Block, input.Memo)
	if err != nil {
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.NewError(domain.KindNotFound, "cannot complete the purchase: cannot verify the payment, memo=%d: %v", input.Memo, err)
	}
	if !verified {
		return nil, domain.NewError(domain.KindNotFound, "cannot complete the purchase: cannot verify the payment, memo=%d", input.Memo)
	}

	// The timer is cancelled before the pending row is touched, so expiry
	// cannot race the commit below. Any failure leaves the row in place and
	// re-arms it.
	s.scheduler.Cancel(input.Memo)
	holdEnds := s.now().Add(s.holdDuration)
	confirmed, err := s.bookings.ConfirmPending(ctx, repository.Confirmation{
		Memo:        input.Memo,
		FlightID:    flight.ID,
		Payer:       caller,
		NoOfPersons: input.NoOfPersons,
		Amount:      amount,
		Block:       input.Block,
		HoldEnds:    holdEnds,
	})
	if err != nil {
		memo := input.Memo
		s.scheduler.Schedule(memo, s.paymentWindow, func() { s.discard(memo) })
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("confirm pending booking: %w", err)
	}
	s.invalidate(ctx)

	s.log.Info("hold confirmed",
		zap.String("flight_id", flight.ID),
		zap.String("payer", caller),
		zap.Uint64("memo", confirmed.Memo),
		zap.Uint64("block", input.Block),
		zap.Time("hold_ends", holdEnds),
	)
	s.publish(ctx, kafka.EventHoldConfirmed, confirmed, &holdEnds)
	return confirmed, nil
}

// EndHold refunds the reservation fee to the holder once the hold period is
// over and makes the flight available again.
func (s *Service) EndHold(ctx context.Context, caller, flightID string) (domain.Message, error) {
	if _, busy := s.ending.LoadOrStore(flightID, struct{}{}); busy {
		return domain.Message{}, domain.NewError(domain.KindBooked, "reservation of flight %s is already being ended", flightID)
	}
	defer s.ending.Delete(flightID)

	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return domain.Message{}, err
	}

	if !flight.IsReserved {
		return domain.Message{}, domain.NewError(domain.KindNotBooked, "flight is not reserved")
	}
	if flight.CurrentReservationEnds == nil {
		return domain.Message{}, domain.NewError(domain.KindNotBooked, "reservation time not set")
	}
	if !s.now().After(*flight.CurrentReservationEnds) {
		return domain.Message{}, domain.NewError(domain.KindBooked, "booking time not yet over")
	}
	if flight.CurrentReservedTo == nil {
		return domain.Message{}, domain.NewError(domain.KindNotBooked, "flight not reserved to anyone")
	}
	if *flight.CurrentReservedTo != caller {
		return domain.Message{}, domain.NewError(domain.KindBooked, "only booker of flight can unbook")
	}
	if s.fee == nil {
		return domain.Message{}, domain.NewError(domain.KindNotFound, "reservation fee not set")
	}

	result, err := s.gateway.Refund(ctx, caller, *s.fee)
	if err != nil {
		s.log.Warn("refund failed, flight stays held", zap.String("flight_id", flightID), zap.Error(err))
		return domain.Message{}, err
	}

	if err := s.flights.Release(ctx, flightID, caller); err != nil {
		s.log.Error("refund paid but flight could not be released", zap.String("flight_id", flightID), zap.Error(err))
		return domain.Message{}, fmt.Errorf("release flight: %w", err)
	}
	s.invalidate(ctx)

	s.log.Info("hold ended", zap.String("flight_id", flightID), zap.String("holder", caller))
	s.publish(ctx, kafka.EventHoldEnded, &domain.Booking{FlightID: flightID, Payer: caller, Amount: *s.fee}, nil)
	return result, nil
}

func (s *Service) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.ListConfirmed(ctx)
}

func (s *Service) ListPending(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.ListPending(ctx)
}

// ReservationFee returns the configured fee, or 0 when it was never set.
func (s *Service) ReservationFee() uint64 {
	if s.fee == nil {
		return 0
	}
	return *s.fee
}

func (s *Service) CanisterAddress() string {
	return s.gateway.SelfAddress()
}

func (s *Service) AddressFromPrincipal(identity string) (string, error) {
	return s.gateway.AddressOf(identity)
}

// ResumeExpiry arms the expiry of pending bookings loaded from storage, e.g.
// after a restart. Bookings already past their payment window expire at once.
func (s *Service) ResumeExpiry(ctx context.Context) (int, error) {
	pending, err := s.bookings.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending bookings: %w", err)
	}

	now := s.now()
	for _, b := range pending {
		delay := b.CreatedAt.Add(s.paymentWindow).Sub(now)
		if delay < 0 {
			delay = 0
		}
		memo := b.Memo
		s.scheduler.Schedule(memo, delay, func() { s.discard(memo) })
	}
	if len(pending) > 0 {
		s.log.Info("expiry resumed", zap.Int("pending", len(pending)))
	}
	return len(pending), nil
}

// discard is the expiry action armed by OpenHold.
func (s *Service) discard(memo uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	booking, err := s.bookings.TakePending(ctx, memo)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Debug("expired booking already gone", zap.Uint64("memo", memo))
			return
		}
		s.log.Warn("discard pending booking", zap.Uint64("memo", memo), zap.Error(err))
		return
	}

	s.log.Info("order discarded",
		zap.Uint64("memo", memo),
		zap.String("flight_id", booking.FlightID),
		zap.String("payer", booking.Payer),
	)
	s.publish(ctx, kafka.EventHoldExpired, booking, nil)
}

func (s *Service) amountFor(flight *domain.Flight, persons uint64) (uint64, error) {
	if persons == 0 {
		return 0, domain.NewError(domain.KindInvalidPayload, "number of persons must be positive")
	}
	hi, total := bits.Mul64(persons, flight.PricePerPerson)
	if hi != 0 {
		return 0, domain.NewError(domain.KindInvalidPayload, "amount overflows for %d persons", persons)
	}
	total, carry := bits.Add64(total, *s.fee, 0)
	if carry != 0 {
		return 0, domain.NewError(domain.KindInvalidPayload, "amount overflows for %d persons", persons)
	}
	return total, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.log.Warn("invalidate flights cache", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, eventType string, b *domain.Booking, holdEnds *time.Time) {
	if s.producer == nil || s.reservationsTopic == "" {
		return
	}
	event := kafka.ReservationEvent{
		Type:        eventType,
		FlightID:    b.FlightID,
		Payer:       b.Payer,
		Memo:        b.Memo,
		Amount:      b.Amount,
		NoOfPersons: b.NoOfPersons,
		Status:      string(b.Status),
		PaidAtBlock: b.PaidAtBlock,
		HoldEnds:    holdEnds,
		OccurredAt:  s.now(),
	}
	if err := s.producer.Publish(ctx, s.reservationsTopic, b.FlightID, event); err != nil {
		s.log.Warn("publish event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, b.FlightID, event); err != nil {
			s.log.Warn("publish notification", zap.String("type", eventType), zap.Error(err))
		}
	}
}

var _ ReservationUseCase = (*Service)(nil)
