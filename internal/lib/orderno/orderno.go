// Package orderno генерирует номера заказов: метка времени и случайный суффикс.
package orderno

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const suffixDigits = 6

var suffixLimit = big.NewInt(1_000_000)

// Generate возвращает номер заказа вида yyyyMMddHHmmss + 6 случайных цифр.
// Коллизии маловероятны, но вызывающий код должен повторить вставку при нарушении уникальности.
func Generate(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, suffixLimit)
	if err != nil {
		return "", fmt.Errorf("orderno.Generate: %w", err)
	}
	return fmt.Sprintf("%s%0*d", now.Format("20060102150405"), suffixDigits, n.Int64()), nil
}
