package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS flights (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		price_per_person NUMERIC(20,0) NOT NULL,
		departure_from TEXT NOT NULL,
		arrive_to TEXT NOT NULL,
		departure_time TIMESTAMPTZ NOT NULL,
		seats NUMERIC(20,0) NOT NULL,
		is_reserved BOOLEAN NOT NULL DEFAULT FALSE,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		current_reserved_to TEXT,
		current_reservation_ends TIMESTAMPTZ,
		creator TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (is_reserved = (current_reserved_to IS NOT NULL AND current_reservation_ends IS NOT NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS pending_bookings (
		memo NUMERIC(20,0) PRIMARY KEY,
		flight_id TEXT NOT NULL,
		amount NUMERIC(20,0) NOT NULL,
		no_of_persons NUMERIC(20,0) NOT NULL,
		payer TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		payer TEXT PRIMARY KEY,
		flight_id TEXT NOT NULL,
		amount NUMERIC(20,0) NOT NULL,
		no_of_persons NUMERIC(20,0) NOT NULL,
		paid_at_block NUMERIC(20,0) NOT NULL,
		memo NUMERIC(20,0) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone_no TEXT NOT NULL,
		booked_flights TEXT[] NOT NULL DEFAULT '{}'
	)`,
}

// Migrate creates the tables used by the PostgreSQL repositories.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
