package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/flighthold/api"
	"github.com/Domenick1991/flighthold/config"
	"github.com/Domenick1991/flighthold/internal/service/flights"
	"github.com/Domenick1991/flighthold/internal/service/reservation"
	"github.com/Domenick1991/flighthold/internal/service/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Services struct {
	Flights      flights.FlightUseCase
	Users        users.UserUseCase
	Reservations reservation.ReservationUseCase
}

// Run serves the HTTP API and swagger UI and blocks until ctx is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger, svc Services) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg, log, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(cfg *config.Config, log *zap.Logger, svc Services) *gin.Engine {
	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.Recovery(log), api.RequestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	api.NewFlightHandler(svc.Flights, log).Register(v1.Group("/flights"))
	api.NewUserHandler(svc.Users, log).Register(v1.Group("/users"))
	api.NewBookingHandler(svc.Reservations, log).Register(v1)

	api.RegisterDocs(router, cfg.HTTP.SwaggerDir)
	return router
}
