package service

import (
	"crypto/rand"
	"io"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	postIDPrefix     = "GP"
	postIDRandomLen  = 8
	base36Alphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	base36RejectFrom = 252 // largest multiple of 36 that fits in a byte
)

// IDGenerator mints post identifiers.
type IDGenerator interface {
	Generate() string
}

// PostIDGenerator produces ids shaped GP-<8 random base36>-<base36 unix millis>.
// Uniqueness is probabilistic; the store's unique key is the real guarantee.
type PostIDGenerator struct {
	random io.Reader
	now    func() time.Time
}

func NewPostIDGenerator() *PostIDGenerator {
	return &PostIDGenerator{random: rand.Reader, now: time.Now}
}

func (g *PostIDGenerator) Generate() string {
	var b strings.Builder
	b.Grow(len(postIDPrefix) + postIDRandomLen + 12)
	b.WriteString(postIDPrefix)
	b.WriteByte('-')
	b.WriteString(randomBase36(g.random, postIDRandomLen))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(g.now().UnixMilli(), 36))
	return b.String()
}

// randomBase36 draws unbiased base36 digits by rejecting bytes >= 252.
func randomBase36(random io.Reader, n int) string {
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := io.ReadFull(random, buf); err != nil {
			// Never seen with crypto/rand; the unique key still catches a clash.
			for len(out) < n {
				out = append(out, base36Alphabet[mrand.IntN(36)])
			}
			break
		}
		for _, c := range buf {
			if c >= base36RejectFrom {
				continue
			}
			out = append(out, base36Alphabet[c%36])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
