package domain

import "time"

type BookingStatus string

const (
	BookingStatusPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
)

// Booking is a pending hold while Status is PAYMENT_PENDING and a confirmed
// reservation once COMPLETED. Memo is the correlation id the payer must put on
// the ledger transfer.
type Booking struct {
	FlightID    string        `json:"flight_id"`
	Amount      uint64        `json:"amount"`
	NoOfPersons uint64        `json:"no_of_persons"`
	Status      BookingStatus `json:"status"`
	Payer       string        `json:"payer"`
	PaidAtBlock *uint64       `json:"paid_at_block,omitempty"`
	Memo        uint64        `json:"memo,string"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Complete returns a copy of b confirmed at block.
func (b Booking) Complete(block uint64) Booking {
	b.Status = BookingStatusCompleted
	b.PaidAtBlock = &block
	return b
}
