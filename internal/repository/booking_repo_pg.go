package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) CreatePending(ctx context.Context, b *domain.Booking) error {
	b.Status = domain.BookingStatusPaymentPending
	return r.db.QueryRow(ctx, `INSERT INTO pending_bookings (memo, flight_id, amount, no_of_persons, payer)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (memo) DO UPDATE SET
			flight_id = EXCLUDED.flight_id,
			amount = EXCLUDED.amount,
			no_of_persons = EXCLUDED.no_of_persons,
			payer = EXCLUDED.payer,
			created_at = now()
		RETURNING created_at`,
		toNumeric(b.Memo), b.FlightID, toNumeric(b.Amount), toNumeric(b.NoOfPersons), b.Payer).
		Scan(&b.CreatedAt)
}

// TakePending relies on DELETE ... RETURNING so that two concurrent callers
// cannot both receive the row.
func (r *PGBookingRepository) TakePending(ctx context.Context, memo uint64) (*domain.Booking, error) {
	b, err := scanPending(r.db.QueryRow(ctx, `DELETE FROM pending_bookings WHERE memo=$1
		RETURNING memo, flight_id, amount, no_of_persons, payer, created_at`, toNumeric(memo)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "there is no pending booking with memo=%d", memo)
	}
	return b, err
}

func (r *PGBookingRepository) ListPending(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT memo, flight_id, amount, no_of_persons, payer, created_at FROM pending_bookings ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ConfirmPending runs in one transaction: the matching pending row is
// deleted, the flight is marked held and the payer's confirmed booking is
// upserted. Any failure rolls all three back.
func (r *PGBookingRepository) ConfirmPending(ctx context.Context, c Confirmation) (*domain.Booking, error) {
	var confirmed domain.Booking
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		pending, err := scanPending(tx.QueryRow(ctx, `DELETE FROM pending_bookings
			WHERE memo=$1 AND flight_id=$2 AND payer=$3 AND no_of_persons=$4
			RETURNING memo, flight_id, amount, no_of_persons, payer, created_at`,
			toNumeric(c.Memo), c.FlightID, c.Payer, toNumeric(c.NoOfPersons)))
		if errors.Is(err, pgx.ErrNoRows) {
			return pendingNotFound(c)
		}
		if err != nil {
			return err
		}

		res, err := tx.Exec(ctx, `UPDATE flights SET
				is_reserved = TRUE,
				current_reserved_to = $2,
				current_reservation_ends = $3,
				updated_at = now()
			WHERE id=$1`, c.FlightID, c.Payer, c.HoldEnds)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return domain.NewError(domain.KindNotFound, "flight with id=%s not found", c.FlightID)
		}

		confirmed = pending.Complete(c.Block)
		confirmed.Amount = c.Amount
		return tx.QueryRow(ctx, `INSERT INTO bookings (payer, flight_id, amount, no_of_persons, paid_at_block, memo)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (payer) DO UPDATE SET
				flight_id = EXCLUDED.flight_id,
				amount = EXCLUDED.amount,
				no_of_persons = EXCLUDED.no_of_persons,
				paid_at_block = EXCLUDED.paid_at_block,
				memo = EXCLUDED.memo,
				created_at = now()
			RETURNING created_at`,
			confirmed.Payer, confirmed.FlightID, toNumeric(confirmed.Amount), toNumeric(confirmed.NoOfPersons),
			toNumeric(c.Block), toNumeric(confirmed.Memo)).
			Scan(&confirmed.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &confirmed, nil
}

func (r *PGBookingRepository) ListConfirmed(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT payer, flight_id, amount, no_of_persons, paid_at_block, memo, created_at FROM bookings ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var (
			b                            domain.Booking
			amount, persons, block, memo pgtype.Numeric
		)
		if err := rows.Scan(&b.Payer, &b.FlightID, &amount, &persons, &block, &memo, &b.CreatedAt); err != nil {
			return nil, err
		}
		paid, err := fromNumeric(block)
		if err != nil {
			return nil, err
		}
		if b.Amount, err = fromNumeric(amount); err != nil {
			return nil, err
		}
		if b.NoOfPersons, err = fromNumeric(persons); err != nil {
			return nil, err
		}
		if b.Memo, err = fromNumeric(memo); err != nil {
			return nil, err
		}
		b.Status = domain.BookingStatusCompleted
		b.PaidAtBlock = &paid
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanPending(row pgx.Row) (*domain.Booking, error) {
	var (
		b                     domain.Booking
		memo, amount, persons pgtype.Numeric
	)
	if err := row.Scan(&memo, &b.FlightID, &amount, &persons, &b.Payer, &b.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.Memo, err = fromNumeric(memo); err != nil {
		return nil, err
	}
	if b.Amount, err = fromNumeric(amount); err != nil {
		return nil, err
	}
	if b.NoOfPersons, err = fromNumeric(persons); err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatusPaymentPending
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
