package util

import (
	"crypto/rand"
	"io"
	"strconv"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// unbiased is the largest multiple of len(base36) that fits in a byte.
const unbiased = 256 / len(base36) * len(base36)

// NewBlockID returns an identifier of the form block-<unix ms>-<9 base36 chars>.
func NewBlockID(now time.Time) string {
	return "block-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomBase36(rand.Reader, 9)
}

// randomBase36 draws n characters from r, dropping bytes that would skew
// the distribution toward the start of the alphabet.
func randomBase36(r io.Reader, n int) string {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		k, err := r.Read(buf)
		for _, b := range buf[:k] {
			if int(b) >= unbiased {
				continue
			}
			out = append(out, base36[int(b)%len(base36)])
			if len(out) == n {
				break
			}
		}
		if err != nil {
			break
		}
	}
	return string(out)
}
