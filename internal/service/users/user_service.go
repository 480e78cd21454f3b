package users

import (
	"context"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserUseCase interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Add(ctx context.Context, payload domain.UserPayload) (*domain.User, error)
	Update(ctx context.Context, id string, payload domain.UpdateUserPayload) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	AddBookedFlight(ctx context.Context, id, flightID string) (*domain.User, error)
}

type UserService struct {
	repo    repository.UserRepository
	flights repository.FlightRepository
	log     *zap.Logger
}

func NewUserService(repo repository.UserRepository, flights repository.FlightRepository, log *zap.Logger) *UserService {
	return &UserService{repo: repo, flights: flights, log: log.Named("users")}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) Add(ctx context.Context, payload domain.UserPayload) (*domain.User, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:            uuid.NewString(),
		Name:          payload.Name,
		Email:         payload.Email,
		PhoneNo:       payload.PhoneNo,
		BookedFlights: []string{},
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user added", zap.String("user_id", user.ID))
	return user, nil
}

// Update changes contact details only; name and booked flights stay as they are.
func (s *UserService) Update(ctx context.Context, id string, payload domain.UpdateUserPayload) (*domain.User, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Email = payload.Email
	user.PhoneNo = payload.PhoneNo

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}

// AddBookedFlight records flightID on the user's travel history. The flight
// must exist.
func (s *UserService) AddBookedFlight(ctx context.Context, id, flightID string) (*domain.User, error) {
	if _, err := s.flights.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	if err := s.repo.AddBookedFlight(ctx, id, flightID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

var _ UserUseCase = (*UserService)(nil)
