package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain/ports/adapter"
	"rental-booking-bot/internal/infra/logging"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// Check reports whether today's portal operations contain a transfer
	// from the given phone, and its amount. found=false is not an error.
	Check(ctx context.Context, phone string) (amount int64, found bool, err error)
}

type paymentUC struct {
	portal adapter.PaymentPortal
	dev    bool
	log    *zerolog.Logger
}

func NewPaymentUseCase(portal adapter.PaymentPortal, dev bool, logger *zerolog.Logger) *paymentUC {
	ucLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{portal: portal, dev: dev, log: &ucLog}
}

func (u *paymentUC) Check(ctx context.Context, phone string) (int64, bool, error) {
	target := digitSequence(phone)
	if target == "" {
		return 0, false, nil
	}

	ops, err := u.portal.TodayOperations(ctx)
	if err != nil {
		return 0, false, err
	}

	// The parameters field is free text whose digits are the sender phone.
	// The whole digit run must match: a substring hit could credit another
	// payer's transfer.
	for _, op := range ops {
		if digitSequence(op.Parameters) == target {
			return op.Amount, true, nil
		}
	}
	u.log.Debug().Str("phone", logging.Redact(target, u.dev)).Int("operations", len(ops)).Msg("no matching transfer today")
	return 0, false, nil
}

// settlePayment folds a found transfer into the running partial total.
// paid means the accumulated amount covers the requirement; otherwise
// remaining is what the customer still owes.
func settlePayment(partial, amount, required int64) (paid bool, newPartial, remaining int64) {
	if partial+amount >= required {
		return true, 0, 0
	}
	newPartial = partial + amount
	return false, newPartial, required - newPartial
}
