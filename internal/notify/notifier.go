package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flighthold/internal/kafka"
	"go.uber.org/zap"
)

// Notification is what a traveler is told about a change to their hold.
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender delivers notifications to the log.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("notify")}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.log.Info("notification",
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body),
	)
	return nil
}

type Notifier struct {
	sender Sender
	log    *zap.Logger
}

func NewNotifier(sender Sender, log *zap.Logger) *Notifier {
	return &Notifier{sender: sender, log: log.Named("notifier")}
}

// Handle turns a reservation event into a notification for its payer. Unknown
// event types are skipped.
func (n *Notifier) Handle(ctx context.Context, event kafka.ReservationEvent) error {
	msg, ok := Render(event)
	if !ok {
		n.log.Debug("event ignored", zap.String("type", event.Type))
		return nil
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s notification: %w", event.Type, err)
	}
	return nil
}

func Render(event kafka.ReservationEvent) (Notification, bool) {
	n := Notification{Recipient: event.Payer}

	switch event.Type {
	case kafka.EventHoldOpened:
		n.Subject = "Complete your payment"
		n.Body = fmt.Sprintf("Transfer %d e8s with memo %d to hold flight %s.", event.Amount, event.Memo, event.FlightID)
	case kafka.EventHoldConfirmed:
		n.Subject = "Flight held"
		n.Body = fmt.Sprintf("Payment at block %s confirmed, flight %s is held for you%s.", blockText(event.PaidAtBlock), event.FlightID, untilText(event.HoldEnds))
	case kafka.EventHoldExpired:
		n.Subject = "Hold expired"
		n.Body = fmt.Sprintf("No payment arrived for flight %s (memo %d), the pending booking was discarded.", event.FlightID, event.Memo)
	case kafka.EventHoldEnded:
		n.Subject = "Reservation ended"
		n.Body = fmt.Sprintf("Your hold on flight %s ended and the reservation fee of %d e8s was refunded.", event.FlightID, event.Amount)
	default:
		return Notification{}, false
	}
	return n, true
}

func blockText(block *uint64) string {
	if block == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *block)
}

func untilText(ends *time.Time) string {
	if ends == nil {
		return ""
	}
	return " until " + ends.UTC().Format(time.RFC3339)
}
