package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
)

// AccountIdentifier is the 32-byte ledger address: a CRC32 of the hash
// followed by SHA-224("\x0Aaccount-id" || principal || subaccount).
type AccountIdentifier [32]byte

// Subaccount selects one of a principal's accounts; the zero value is the default.
type Subaccount [32]byte

func AccountOf(p Principal, sub Subaccount) AccountIdentifier {
	h := sha256.New224()
	h.Write([]byte("\x0Aaccount-id"))
	h.Write(p)
	h.Write(sub[:])
	sum := h.Sum(nil)

	var id AccountIdentifier
	binary.BigEndian.PutUint32(id[:4], crc32.ChecksumIEEE(sum))
	copy(id[4:], sum)
	return id
}

func ParseAccountIdentifier(s string) (AccountIdentifier, error) {
	var id AccountIdentifier
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("account identifier %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("account identifier %q: want %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	if binary.BigEndian.Uint32(id[:4]) != crc32.ChecksumIEEE(id[4:]) {
		return id, fmt.Errorf("account identifier %q: checksum mismatch", s)
	}
	return id, nil
}

func (a AccountIdentifier) String() string {
	return hex.EncodeToString(a[:])
}

func (a AccountIdentifier) Equal(other AccountIdentifier) bool {
	return bytes.Equal(a[:], other[:])
}
