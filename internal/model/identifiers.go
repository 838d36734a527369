package model

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"time"
)

var registrationNumberRe = regexp.MustCompile(`^(SHACK|WORK)\d{4}\d{5,}$`)

const base36Upper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RegistrationNumber formats {SHACK|WORK}{year}{5-digit sequence}.
func RegistrationNumber(t Target, year, seq int) string {
	return fmt.Sprintf("%s%d%05d", t.RegistrationPrefix(), year, seq)
}

func IsRegistrationNumber(s string) bool {
	return registrationNumberRe.MatchString(s)
}

// RegistrationCounter is the name of the per-year sequence counter.
func RegistrationCounter(year int) string {
	return "registration:" + strconv.Itoa(year)
}

// NewTransactionID returns TXN{unix-ms}{6 random base36 chars}.
func NewTransactionID(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(base36Upper)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate transaction id: %w", err)
		}
		suffix[i] = base36Upper[n.Int64()]
	}
	return "TXN" + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix), nil
}
