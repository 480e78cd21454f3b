package ledger

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// CorrelationID derives the memo a payer must attach to the transfer for a
// hold on flightID opened by caller at the given instant.
func CorrelationID(flightID, caller string, at time.Time) uint64 {
	sum := blake2b.Sum256(fmt.Appendf(nil, "%s_%s_%d", flightID, caller, at.UnixNano()))
	return binary.BigEndian.Uint64(sum[:8])
}
