package service

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/sha3"

	"ghostpic/internal/model"
)

// NormalizeWallet validates an EVM address and returns its EIP-55 checksummed form.
// All-lowercase and all-uppercase hex are accepted as is; mixed case must
// already carry a valid checksum.
func NormalizeWallet(address string) (string, error) {
	address = strings.TrimSpace(address)
	if len(address) != 42 || !(strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X")) {
		return "", model.Invalid(model.ErrInvalidWallet)
	}
	body := address[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return "", model.Invalid(model.ErrInvalidWallet)
	}

	checksummed := checksumAddress(strings.ToLower(body))
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && "0x"+body != checksummed {
		return "", model.Invalid(model.ErrInvalidWallet)
	}
	return checksummed, nil
}

// checksumAddress applies EIP-55 to 40 lowercase hex digits.
func checksumAddress(lower string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// DeriveUserID builds the METIS user id the wallet onboarding flow shows:
// chars 2-6 lowercased, 6-10 uppercased, 10-14 with hex letters zeroed.
// When that lacks an upper, a lower or two digits, "XX1aA" is appended.
func DeriveUserID(wallet string) string {
	if len(wallet) < 14 {
		return ""
	}

	part1 := strings.ToLower(wallet[2:6])
	part2 := strings.ToUpper(wallet[6:10])
	numbers := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') {
			return '0'
		}
		return r
	}, wallet[10:14])

	id := model.UserIDPrefix + part1 + part2 + numbers
	if hasUserIDShape(id) {
		return id
	}
	return id + "XX1aA"
}

func hasUserIDShape(id string) bool {
	var upper, lower bool
	digits := 0
	for _, r := range id {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digits++
		}
	}
	return upper && lower && digits >= 2
}
