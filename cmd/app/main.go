package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flighthold/config"
	"github.com/Domenick1991/flighthold/internal/bootstrap"
	"github.com/Domenick1991/flighthold/internal/cache"
	"github.com/Domenick1991/flighthold/internal/kafka"
	"github.com/Domenick1991/flighthold/internal/ledger"
	"github.com/Domenick1991/flighthold/internal/logger"
	"github.com/Domenick1991/flighthold/internal/repository"
	"github.com/Domenick1991/flighthold/internal/scheduler"
	"github.com/Domenick1991/flighthold/internal/service/flights"
	"github.com/Domenick1991/flighthold/internal/service/reservation"
	"github.com/Domenick1991/flighthold/internal/service/users"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type stores struct {
	flights  repository.FlightRepository
	bookings repository.BookingRepository
	users    repository.UserRepository
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.InitLogger(cfg.Log.Dir, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStores, err := openStores(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("open storage", zap.Error(err))
	}
	defer closeStores()

	self, err := ledger.ParsePrincipal(cfg.Ledger.SelfPrincipal)
	if err != nil {
		zlog.Fatal("ledger self principal", zap.Error(err))
	}
	ledgerClient, err := ledger.DialGRPC(cfg.Ledger.Address, time.Duration(cfg.Ledger.CallTimeout)*time.Second)
	if err != nil {
		zlog.Fatal("dial ledger", zap.String("address", cfg.Ledger.Address), zap.Error(err))
	}
	defer ledgerClient.Close()
	gateway := ledger.NewGateway(ledgerClient, self, zlog)

	var flightCache flights.FlightCache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			zlog.Warn("redis unavailable, flight cache disabled", zap.Error(err))
		} else {
			flightCache = redisCache
		}
	}
	flightService := flights.NewFlightService(st.flights, flightCache, zlog)

	sched := scheduler.New(zlog)
	defer sched.Stop()

	opts := []reservation.ServiceOption{
		reservation.WithPaymentWindow(cfg.Reservation.PaymentWindow()),
		reservation.WithHoldDuration(cfg.Reservation.HoldDuration()),
		reservation.WithFlightCache(flightService),
	}
	if cfg.Reservation.FeeE8s != nil {
		opts = append(opts, reservation.WithReservationFee(*cfg.Reservation.FeeE8s))
	} else {
		zlog.Warn("reservation fee not set, holds cannot be opened")
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, zlog)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			zlog.Warn("kafka unavailable, events will fail to publish", zap.Error(err))
		}
		opts = append(opts,
			reservation.WithProducer(producer, cfg.Kafka.ReservationsTopic),
			reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}
	reservationService := reservation.NewReservationService(st.flights, st.bookings, gateway, sched, zlog, opts...)

	if _, err := reservationService.ResumeExpiry(ctx); err != nil {
		zlog.Error("resume pending expiry", zap.Error(err))
	}

	if err := bootstrap.Run(ctx, cfg, zlog, bootstrap.Services{
		Flights:      flightService,
		Users:        users.NewUserService(st.users, st.flights, zlog),
		Reservations: reservationService,
	}); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (stores, func(), error) {
	if cfg.Storage == config.StorageMemory {
		zlog.Info("using in-memory storage")
		flightRepo := repository.NewMemoryFlightRepository()
		return stores{
			flights:  flightRepo,
			bookings: repository.NewMemoryBookingRepository(flightRepo),
			users:    repository.NewMemoryUserRepository(),
		}, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return stores{}, nil, err
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return stores{}, nil, err
	}
	zlog.Info("using postgres storage", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
	return stores{
		flights:  repository.NewFlightRepository(pool),
		bookings: repository.NewBookingRepository(pool),
		users:    repository.NewUserRepository(pool),
	}, pool.Close, nil
}
