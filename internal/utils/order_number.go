package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix     = "ORD"
	orderNumberSuffixSize = 5
	base36Alphabet        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewOrderNumber формирует номер заказа вида ORD-<миллисекунды в base36>-<5 случайных символов base36>.
func NewOrderNumber(now time.Time) (string, error) {
	suffix, err := randomBase36(orderNumberSuffixSize)
	if err != nil {
		return "", err
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	return orderNumberPrefix + "-" + stamp + "-" + suffix, nil
}

func randomBase36(length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)

	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base36Alphabet[n.Int64()])
	}

	return sb.String(), nil
}
