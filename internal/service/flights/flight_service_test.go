package flights

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Save(ctx context.Context, f *domain.Flight) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFlightRepository) UpdateDetails(ctx context.Context, f *domain.Flight) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFlightRepository) Release(ctx context.Context, id, holder string) error {
	args := m.Called(ctx, id, holder)
	return args.Error(0)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id, creator string) error {
	args := m.Called(ctx, id, creator)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func (m *MockCache) InvalidateFlights(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

const (
	operator = "ryjl3-tyaaa-aaaaa-aaaba-cai"
	stranger = "2vxsx-fae"
)

func sampleFlights() []domain.Flight {
	departure := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	return []domain.Flight{
		{ID: "a", Name: "KL1001", PricePerPerson: 120, DepartureFrom: "Amsterdam", ArriveTo: "London", DepartureTime: departure, Seats: 100, IsAvailable: true, Creator: operator},
		{ID: "b", Name: "LH400", PricePerPerson: 450, DepartureFrom: "Frankfurt", ArriveTo: "New York", DepartureTime: departure, Seats: 300, IsAvailable: true, Creator: operator},
		{ID: "c", Name: "BA431", PricePerPerson: 90, DepartureFrom: "London", ArriveTo: "Amsterdam", DepartureTime: departure, Seats: 150, IsAvailable: true, Creator: operator},
	}
}

func validPayload() domain.FlightPayload {
	return domain.FlightPayload{
		Name:           "KL1001",
		PricePerPerson: 120,
		DepartureFrom:  "Amsterdam",
		ArriveTo:       "London",
		Seats:          100,
	}
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertNotCalled(t, "List")
	mockCache.AssertNotCalled(t, "SetFlights")
}

// A broken cache falls back to the repository.
func TestFlightService_List_CacheError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), errors.New("cache error")).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(errors.New("cache error")).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	expectedErr := errors.New("database error")
	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx).Return([]domain.Flight{}, expectedErr).Once()

	result, err := service.List(ctx)

	assert.Nil(t, result)
	assert.Equal(t, expectedErr, err)
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockRepo.On("List", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_GetByID_NotFound(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, "missing").Return(nil, domain.NewError(domain.KindNotFound, "flight missing not found")).Once()

	result, err := service.GetByID(ctx, "missing")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlightService_FilterByMaxPrice(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()
	mockRepo.On("List", ctx).Return(sampleFlights(), nil)

	result, err := service.FilterByMaxPrice(ctx, 120)
	require.NoError(t, err)
	ids := make([]string, 0, len(result))
	for _, f := range result {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)

	result, err = service.FilterByMaxPrice(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestFlightService_FilterByRoute(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()
	mockRepo.On("List", ctx).Return(sampleFlights(), nil)

	result, err := service.FilterByRoute(ctx, "amsterdam", "LONDON")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "a", result[0].ID)

	result, err = service.FilterByRoute(ctx, "Amsterdam", "Paris")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestFlightService_Add(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Save", ctx, mock.MatchedBy(func(f *domain.Flight) bool {
		return f.Creator == operator && f.IsAvailable && !f.IsReserved && f.ID != ""
	})).Return(nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

	flight, err := service.Add(ctx, operator, validPayload())

	require.NoError(t, err)
	assert.Equal(t, "KL1001", flight.Name)
	assert.Len(t, flight.ID, 36)
	assert.True(t, flight.Consistent())
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_Add_InvalidPayload(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())

	payload := validPayload()
	payload.Name = ""
	payload.Seats = 0

	_, err := service.Add(context.Background(), operator, payload)

	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.ErrorContains(t, err, "Name failed required")
	mockRepo.AssertNotCalled(t, "Save")
}

func TestFlightService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("owner keeps reservation state", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, zap.NewNop())

		existing := sampleFlights()[0]
		existing.Hold(stranger, time.Now().Add(time.Minute))
		mockRepo.On("GetByID", ctx, "a").Return(&existing, nil).Once()
		mockRepo.On("UpdateDetails", ctx, mock.AnythingOfType("*domain.Flight")).Return(nil).Once()

		payload := validPayload()
		payload.PricePerPerson = 999
		updated, err := service.Update(ctx, operator, "a", payload)

		require.NoError(t, err)
		assert.Equal(t, uint64(999), updated.PricePerPerson)
		assert.True(t, updated.IsReserved)
		assert.Equal(t, stranger, *updated.CurrentReservedTo)
	})

	t.Run("not owner", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, zap.NewNop())

		existing := sampleFlights()[0]
		mockRepo.On("GetByID", ctx, "a").Return(&existing, nil).Once()

		_, err := service.Update(ctx, stranger, "a", validPayload())

		assert.ErrorIs(t, err, domain.ErrNotOwner)
		mockRepo.AssertNotCalled(t, "UpdateDetails")
	})

	t.Run("missing", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, zap.NewNop())
		mockRepo.On("GetByID", ctx, "x").Return(nil, domain.ErrNotFound).Once()

		_, err := service.Update(ctx, operator, "x", validPayload())

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestFlightService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		mockCache := &MockCache{}
		service := NewFlightService(mockRepo, mockCache, zap.NewNop())

		mockRepo.On("Delete", ctx, "a", operator).Return(nil).Once()
		mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

		assert.NoError(t, service.Delete(ctx, operator, "a"))
		mockRepo.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	for name, repoErr := range map[string]error{
		"not found": domain.ErrNotFound,
		"not owner": domain.ErrNotOwner,
		"reserved":  domain.ErrBooked,
	} {
		t.Run(name, func(t *testing.T) {
			mockRepo := &MockFlightRepository{}
			mockCache := &MockCache{}
			service := NewFlightService(mockRepo, mockCache, zap.NewNop())
			mockRepo.On("Delete", ctx, "a", operator).Return(repoErr).Once()

			assert.ErrorIs(t, service.Delete(ctx, operator, "a"), repoErr)
			mockCache.AssertNotCalled(t, "InvalidateFlights", ctx)
		})
	}
}

// holdingRepo confirms a hold on the flight right after the first GetByID,
// between the registry's read and its write.
type holdingRepo struct {
	*repository.MemoryFlightRepository
	bookings *repository.MemoryBookingRepository
	t        *testing.T
	once     sync.Once
}

func (r *holdingRepo) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := r.MemoryFlightRepository.GetByID(ctx, id)
	r.once.Do(func() {
		require.NoError(r.t, r.bookings.CreatePending(ctx, &domain.Booking{FlightID: id, Payer: stranger, NoOfPersons: 1, Amount: 130, Memo: 1}))
		_, err := r.bookings.ConfirmPending(ctx, repository.Confirmation{
			Memo: 1, FlightID: id, Payer: stranger, NoOfPersons: 1, Amount: 130, Block: 3, HoldEnds: time.Now().Add(time.Minute),
		})
		require.NoError(r.t, err)
	})
	return f, err
}

func TestFlightService_UpdateKeepsConcurrentHold(t *testing.T) {
	ctx := context.Background()
	flights := repository.NewMemoryFlightRepository()
	existing := sampleFlights()[0]
	require.NoError(t, flights.Save(ctx, &existing))

	repo := &holdingRepo{MemoryFlightRepository: flights, bookings: repository.NewMemoryBookingRepository(flights), t: t}
	service := NewFlightService(repo, nil, zap.NewNop())

	payload := validPayload()
	payload.PricePerPerson = 999
	updated, err := service.Update(ctx, operator, "a", payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), updated.PricePerPerson)
	assert.True(t, updated.IsReserved)

	stored, err := flights.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, stored.IsReserved)
	require.NotNil(t, stored.CurrentReservedTo)
	assert.Equal(t, stranger, *stored.CurrentReservedTo)
	assert.Equal(t, uint64(999), stored.PricePerPerson)
	assert.True(t, stored.Consistent())
}

func TestFlightService_DeleteRefusesHeldFlight(t *testing.T) {
	ctx := context.Background()
	flights := repository.NewMemoryFlightRepository()
	existing := sampleFlights()[0]
	require.NoError(t, flights.Save(ctx, &existing))

	repo := &holdingRepo{MemoryFlightRepository: flights, bookings: repository.NewMemoryBookingRepository(flights), t: t}
	service := NewFlightService(repo, nil, zap.NewNop())

	// The hold lands after the caller looked the flight up.
	seen, err := service.GetByID(ctx, "a")
	require.NoError(t, err)
	require.False(t, seen.IsReserved)

	assert.ErrorIs(t, service.Delete(ctx, operator, "a"), domain.ErrBooked)
	_, err = flights.GetByID(ctx, "a")
	assert.NoError(t, err)
}
