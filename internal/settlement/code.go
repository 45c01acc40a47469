package settlement

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codePrefix = "SCV-"

// codeAlphabet excludes visually confusable characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 10

// newVoucherCode generates a random voucher code. The code space is
// limited, so insertion must still handle uniqueness collisions.
func newVoucherCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate voucher code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}
