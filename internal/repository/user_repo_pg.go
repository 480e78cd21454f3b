package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email, phone_no, booked_flights FROM users ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNo, &u.BookedFlights); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PGUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `SELECT id, name, email, phone_no, booked_flights FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNo, &u.BookedFlights)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "user with id=%s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) Save(ctx context.Context, u *domain.User) error {
	if u.BookedFlights == nil {
		u.BookedFlights = []string{}
	}
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, name, email, phone_no, booked_flights)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone_no = EXCLUDED.phone_no,
			booked_flights = EXCLUDED.booked_flights`,
		u.ID, u.Name, u.Email, u.PhoneNo, u.BookedFlights)
	return err
}

func (r *PGUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewError(domain.KindNotFound, "user with id=%s not found", id)
	}
	return nil
}

func (r *PGUserRepository) AddBookedFlight(ctx context.Context, userID, flightID string) error {
	res, err := r.db.Exec(ctx, `UPDATE users SET booked_flights = array_append(booked_flights, $2) WHERE id=$1`, userID, flightID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewError(domain.KindNotFound, "user with id=%s not found", userID)
	}
	return nil
}

var _ UserRepository = (*PGUserRepository)(nil)
