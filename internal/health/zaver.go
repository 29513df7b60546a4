package health

import (
	"context"

	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// ZaverChecker implements health checking for the Zaver API.
type ZaverChecker struct {
	client zaver.Client
}

// NewZaverChecker creates a new Zaver API health checker.
func NewZaverChecker(client zaver.Client) *ZaverChecker {
	return &ZaverChecker{
		client: client,
	}
}

// HealthCheck verifies the Zaver API is reachable by listing payment
// methods, the cheapest authenticated read the API offers.
func (z *ZaverChecker) HealthCheck(ctx context.Context) error {
	_, err := z.client.GetPaymentMethods(ctx, "")
	return err
}
