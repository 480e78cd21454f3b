package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReservationEvent_JSON(t *testing.T) {
	block := uint64(5)
	ends := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := ReservationEvent{
		Type:        EventHoldConfirmed,
		FlightID:    "f1",
		Payer:       "2vxsx-fae",
		Memo:        18446744073709551615,
		Amount:      210,
		NoOfPersons: 2,
		Status:      "COMPLETED",
		PaidAtBlock: &block,
		HoldEnds:    &ends,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"memo":"18446744073709551615"`)

	var decoded ReservationEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.Memo, decoded.Memo)
	assert.Equal(t, uint64(5), *decoded.PaidAtBlock)
}

func TestConsumer_ReservationEvents(t *testing.T) {
	c := &Consumer{log: zap.NewNop()}
	var got []ReservationEvent
	handler := c.ReservationEvents(func(_ context.Context, e ReservationEvent) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, handler(context.Background(), kafka.Message{Value: []byte(`{"type":"hold_opened","flight_id":"f1","memo":"7"}`)}))
	require.NoError(t, handler(context.Background(), kafka.Message{Value: []byte(`not json`)}))

	require.Len(t, got, 1)
	assert.Equal(t, EventHoldOpened, got[0].Type)
	assert.Equal(t, uint64(7), got[0].Memo)
}

func TestConsumer_ReservationEventsHandlerError(t *testing.T) {
	c := &Consumer{log: zap.NewNop()}
	handler := c.ReservationEvents(func(context.Context, ReservationEvent) error { return errors.New("smtp down") })

	err := handler(context.Background(), kafka.Message{Value: []byte(`{"type":"hold_opened"}`)})
	assert.EqualError(t, err, "smtp down")
}

func TestProducer_NoBrokers(t *testing.T) {
	p := NewProducer(nil, zap.NewNop())
	defer p.Close()

	assert.Error(t, p.CheckConnection(context.Background()))
}

func TestConsumer_CloseNil(t *testing.T) {
	var c *Consumer
	assert.NoError(t, c.Close())
}
