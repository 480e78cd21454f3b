package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/flighthold/config"
	"github.com/Domenick1991/flighthold/internal/ledger"
	"github.com/Domenick1991/flighthold/internal/repository"
	"github.com/Domenick1991/flighthold/internal/service/flights"
	"github.com/Domenick1991/flighthold/internal/service/reservation"
	"github.com/Domenick1991/flighthold/internal/service/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopLedger struct{}

func (noopLedger) QueryBlocks(context.Context, uint64, uint64) ([]ledger.Block, error) {
	return nil, nil
}

func (noopLedger) Transfer(context.Context, ledger.TransferArgs) (uint64, error) { return 0, nil }

func (noopLedger) TransferFee(context.Context) (uint64, error) { return 0, nil }

type noopScheduler struct{}

func (noopScheduler) Schedule(uint64, time.Duration, func()) {}

func (noopScheduler) Cancel(uint64) bool { return false }

func testServices(t *testing.T) Services {
	t.Helper()
	flightRepo := repository.NewMemoryFlightRepository()
	self, err := ledger.ParsePrincipal("rrkah-fqaaa-aaaaa-aaaaq-cai")
	require.NoError(t, err)

	return Services{
		Flights: flights.NewFlightService(flightRepo, nil, zap.NewNop()),
		Users:   users.NewUserService(repository.NewMemoryUserRepository(), flightRepo, zap.NewNop()),
		Reservations: reservation.NewReservationService(flightRepo, repository.NewMemoryBookingRepository(flightRepo),
			ledger.NewGateway(noopLedger{}, self, zap.NewNop()), noopScheduler{}, zap.NewNop(), reservation.WithReservationFee(10)),
	}
}

func TestNewRouter_Routes(t *testing.T) {
	router := NewRouter(&config.Config{}, zap.NewNop(), testServices(t))

	cases := []struct {
		method, path string
		body         string
		want         int
	}{
		{"GET", "/healthz", "", http.StatusOK},
		{"GET", "/api/v1/flights", "", http.StatusOK},
		{"GET", "/api/v1/flights/missing", "", http.StatusNotFound},
		{"GET", "/api/v1/users", "", http.StatusOK},
		{"GET", "/api/v1/bookings", "", http.StatusOK},
		{"GET", "/api/v1/bookings/pending", "", http.StatusOK},
		{"GET", "/api/v1/ledger/fee", "", http.StatusOK},
		{"GET", "/api/v1/ledger/address", "", http.StatusOK},
		{"POST", "/api/v1/reservations", `{"flight_id":"missing","no_of_persons":1}`, http.StatusNotFound},
		{"GET", "/docs/index.html", "", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Principal", "2vxsx-fae")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}
	svc := testServices(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, zap.NewNop(), svc) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
