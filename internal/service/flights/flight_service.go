package flights

import (
	"context"
	"strings"
	"time"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	FilterByMaxPrice(ctx context.Context, maxPrice uint64) ([]domain.Flight, error)
	FilterByRoute(ctx context.Context, from, to string) ([]domain.Flight, error)
	Add(ctx context.Context, caller string, payload domain.FlightPayload) (*domain.Flight, error)
	Update(ctx context.Context, caller, id string, payload domain.FlightPayload) (*domain.Flight, error)
	Delete(ctx context.Context, caller, id string) error
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	now   func() time.Time
	log   *zap.Logger
}

// NewFlightService builds the flight registry. cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, log *zap.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, now: time.Now, log: log.Named("flights")}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.log.Warn("read flights cache", zap.Error(err))
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.Warn("write flights cache", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) FilterByMaxPrice(ctx context.Context, maxPrice uint64) ([]domain.Flight, error) {
	return s.filter(ctx, func(f domain.Flight) bool {
		return f.PricePerPerson <= maxPrice
	})
}

// FilterByRoute matches departure and arrival case-insensitively.
func (s *FlightService) FilterByRoute(ctx context.Context, from, to string) ([]domain.Flight, error) {
	return s.filter(ctx, func(f domain.Flight) bool {
		return strings.EqualFold(f.DepartureFrom, from) && strings.EqualFold(f.ArriveTo, to)
	})
}

func (s *FlightService) Add(ctx context.Context, caller string, payload domain.FlightPayload) (*domain.Flight, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	flight := &domain.Flight{
		ID:          uuid.NewString(),
		IsAvailable: true,
		Creator:     caller,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	payload.Apply(flight)

	if err := s.repo.Save(ctx, flight); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.log.Info("flight added", zap.String("flight_id", flight.ID), zap.String("creator", caller))
	return flight, nil
}

// Update replaces the descriptive fields of a flight owned by caller.
func (s *FlightService) Update(ctx context.Context, caller, id string, payload domain.FlightPayload) (*domain.Flight, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if flight.Creator != caller {
		return nil, domain.NewError(domain.KindNotOwner, "only the creator can update flight %s", id)
	}

	// Only the descriptive columns are written; a hold placed or released
	// since the read above stays as stored.
	payload.Apply(flight)
	if err := s.repo.UpdateDetails(ctx, flight); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.log.Info("flight updated", zap.String("flight_id", id))
	return flight, nil
}

// Delete removes a flight owned by caller. Ownership and the hold are checked
// by the store in the same write, so a hold placed concurrently blocks it.
func (s *FlightService) Delete(ctx context.Context, caller, id string) error {
	if err := s.repo.Delete(ctx, id, caller); err != nil {
		return err
	}
	s.invalidate(ctx)

	s.log.Info("flight deleted", zap.String("flight_id", id))
	return nil
}

func (s *FlightService) filter(ctx context.Context, keep func(domain.Flight) bool) ([]domain.Flight, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Flight, 0, len(all))
	for _, f := range all {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// InvalidateFlights lets other services drop the cached listing after they
// change a flight.
func (s *FlightService) InvalidateFlights(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateFlights(ctx)
}

func (s *FlightService) invalidate(ctx context.Context) {
	if err := s.InvalidateFlights(ctx); err != nil {
		s.log.Warn("invalidate flights cache", zap.Error(err))
	}
}

var _ FlightUseCase = (*FlightService)(nil)
