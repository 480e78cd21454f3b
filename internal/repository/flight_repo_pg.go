package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flightColumns = `id, name, image_url, description, price_per_person, departure_from, arrive_to, departure_time, seats, is_reserved, is_available, current_reserved_to, current_reservation_ends, creator, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "flight with id=%s not found", id)
	}
	return f, err
}

func (r *PGFlightRepository) Save(ctx context.Context, f *domain.Flight) error {
	return r.db.QueryRow(ctx, `INSERT INTO flights (`+flightColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			description = EXCLUDED.description,
			price_per_person = EXCLUDED.price_per_person,
			departure_from = EXCLUDED.departure_from,
			arrive_to = EXCLUDED.arrive_to,
			departure_time = EXCLUDED.departure_time,
			seats = EXCLUDED.seats,
			is_reserved = EXCLUDED.is_reserved,
			is_available = EXCLUDED.is_available,
			current_reserved_to = EXCLUDED.current_reserved_to,
			current_reservation_ends = EXCLUDED.current_reservation_ends,
			updated_at = now()
		RETURNING created_at, updated_at`,
		f.ID, f.Name, f.ImageURL, f.Description, toNumeric(f.PricePerPerson), f.DepartureFrom, f.ArriveTo,
		f.DepartureTime, toNumeric(f.Seats), f.IsReserved, f.IsAvailable, f.CurrentReservedTo,
		f.CurrentReservationEnds, f.Creator).
		Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *PGFlightRepository) UpdateDetails(ctx context.Context, f *domain.Flight) error {
	updated, err := scanFlight(r.db.QueryRow(ctx, `UPDATE flights SET
			name = $2,
			image_url = $3,
			description = $4,
			price_per_person = $5,
			departure_from = $6,
			arrive_to = $7,
			departure_time = $8,
			seats = $9,
			updated_at = now()
		WHERE id=$1
		RETURNING `+flightColumns,
		f.ID, f.Name, f.ImageURL, f.Description, toNumeric(f.PricePerPerson), f.DepartureFrom, f.ArriveTo,
		f.DepartureTime, toNumeric(f.Seats)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewError(domain.KindNotFound, "flight with id=%s not found", f.ID)
	}
	if err != nil {
		return err
	}
	*f = *updated
	return nil
}

func (r *PGFlightRepository) Release(ctx context.Context, id, holder string) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET
			is_reserved = FALSE,
			current_reserved_to = NULL,
			current_reservation_ends = NULL,
			updated_at = now()
		WHERE id=$1 AND is_reserved AND current_reserved_to=$2`, id, holder)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.NewError(domain.KindNotBooked, "flight %s is not held by %s", id, holder)
	}
	return nil
}

// Delete only removes unheld rows of creator; when nothing is removed the row
// is read back to report why.
func (r *PGFlightRepository) Delete(ctx context.Context, id, creator string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id=$1 AND creator=$2 AND NOT is_reserved`, id, creator)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	f, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return deleteRefused(id, creator, f)
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var (
		f           domain.Flight
		price, seat pgtype.Numeric
	)
	if err := row.Scan(&f.ID, &f.Name, &f.ImageURL, &f.Description, &price, &f.DepartureFrom, &f.ArriveTo,
		&f.DepartureTime, &seat, &f.IsReserved, &f.IsAvailable, &f.CurrentReservedTo,
		&f.CurrentReservationEnds, &f.Creator, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if f.PricePerPerson, err = fromNumeric(price); err != nil {
		return nil, err
	}
	if f.Seats, err = fromNumeric(seat); err != nil {
		return nil, err
	}
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
