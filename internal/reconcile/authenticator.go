// Package reconcile applies provider-reported payment and refund state to
// orders.
package reconcile

import (
	"crypto/subtle"
	"errors"

	"github.com/commercekit/zaver-gateway/internal/order"
)

// ErrInvalidOrderKey indicates a callback or landing request whose order key
// does not match the order.
var ErrInvalidOrderKey = errors.New("invalid order key")

// AuthenticateCallback checks a presented order key against the order's key
// in constant time. An order without a key rejects everything.
func AuthenticateCallback(o *order.Order, key string) error {
	if o.OrderKey == "" || key == "" {
		return ErrInvalidOrderKey
	}
	if subtle.ConstantTimeCompare([]byte(o.OrderKey), []byte(key)) != 1 {
		return ErrInvalidOrderKey
	}
	return nil
}
