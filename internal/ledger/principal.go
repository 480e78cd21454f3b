package ledger

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

const maxPrincipalLen = 29

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is the binary form of an Internet Computer identity.
type Principal []byte

// ParsePrincipal decodes the textual form, e.g. "2vxsx-fae", validating the
// embedded CRC32 checksum.
func ParsePrincipal(text string) (Principal, error) {
	if text == "" {
		return nil, errors.New("empty principal")
	}
	raw := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	decoded, err := principalEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("principal %q: %w", text, err)
	}
	if len(decoded) < 4 {
		return nil, fmt.Errorf("principal %q: too short", text)
	}

	body := decoded[4:]
	if len(body) > maxPrincipalLen {
		return nil, fmt.Errorf("principal %q: too long", text)
	}
	if binary.BigEndian.Uint32(decoded[:4]) != crc32.ChecksumIEEE(body) {
		return nil, fmt.Errorf("principal %q: checksum mismatch", text)
	}

	p := Principal(body)
	if p.String() != strings.ToLower(text) {
		return nil, fmt.Errorf("principal %q: not in canonical form", text)
	}
	return p, nil
}

func (p Principal) String() string {
	buf := make([]byte, 4+len(p))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p))
	copy(buf[4:], p)

	enc := strings.ToLower(principalEncoding.EncodeToString(buf))
	var sb strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := min(i+5, len(enc))
		sb.WriteString(enc[i:end])
	}
	return sb.String()
}
