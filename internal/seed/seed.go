// Package seed loads demo data: a few accounts, one completed transfer and
// one pending money request.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	"github.com/sheikh-saqib/peer-payments/internal/ledger"
	"github.com/sheikh-saqib/peer-payments/internal/models"
)

var DemoAccounts = []ledger.OpenAccountInput{
	{ID: "sampleUserId1", Email: "sender@example.com", DisplayName: "Sample Sender", InitialBalance: decimal.NewFromInt(500)},
	{ID: "sampleUserId2", Email: "requester@example.com", DisplayName: "Sample Requester", InitialBalance: decimal.NewFromInt(100)},
	{ID: "sampleUserId3", Email: "recipient@example.com", DisplayName: "Sample Recipient", InitialBalance: decimal.Zero},
}

type Result struct {
	Accounts []models.Account
	Transfer *models.Transfer
	Request  *models.MoneyRequest
}

// Run creates the demo data. Accounts that already exist are kept as they
// are, and the sample transfer and request are only created on a fresh seed.
func Run(ctx context.Context, l *ledger.Ledger, logger *zap.Logger) (Result, error) {
	var (
		res   Result
		fresh = true
	)
	for _, in := range DemoAccounts {
		acc, err := l.OpenAccount(ctx, in)
		if apperr.IsKind(err, apperr.KindAlreadyExists) {
			fresh = false
			acc, err = l.GetAccount(ctx, in.ID)
		}
		if err != nil {
			return res, fmt.Errorf("seed account %s: %w", in.ID, err)
		}
		res.Accounts = append(res.Accounts, acc)
	}
	if !fresh {
		logger.Info("demo accounts already present, skipping sample activity")
		return res, nil
	}

	transfer, err := l.SendMoney(ctx, ledger.SendMoneyInput{
		SenderID:       "sampleUserId1",
		RecipientEmail: "recipient@example.com",
		Amount:         decimal.NewFromInt(50),
	})
	if err != nil {
		return res, fmt.Errorf("seed transfer: %w", err)
	}
	res.Transfer = &transfer

	req, err := l.RequestMoney(ctx, ledger.RequestMoneyInput{
		RequesterID: "sampleUserId2",
		PayerEmail:  "sender@example.com",
		Amount:      decimal.NewFromInt(25),
	})
	if err != nil {
		return res, fmt.Errorf("seed money request: %w", err)
	}
	res.Request = &req

	logger.Info("demo data seeded",
		zap.Int("accounts", len(res.Accounts)),
		zap.String("transfer_id", transfer.ID),
		zap.String("request_id", req.ID))
	return res, nil
}
