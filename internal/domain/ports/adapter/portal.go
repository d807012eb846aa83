package adapter

import "context"

// Operation is one incoming transfer row from the merchant portal.
type Operation struct {
	Amount     int64  `json:"amount"`
	Parameters string `json:"parameters"`
}

// PaymentPortal lists today's incoming operations. Implementations own their
// session tokens and re-authenticate transparently when the portal answers
// unauthorized.
type PaymentPortal interface {
	TodayOperations(ctx context.Context) ([]Operation, error)
}
