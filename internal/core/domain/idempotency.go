package domain

import (
	"strconv"
)

// BuildPayoutIdempotencyKey scopes a client-supplied key to the requesting merchant.
func BuildPayoutIdempotencyKey(merchantID int64, clientKey string) string {
	return "payout:" + strconv.FormatInt(merchantID, 10) + ":" + clientKey
}
