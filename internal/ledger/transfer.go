package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	interfaces "github.com/sheikh-saqib/peer-payments/internal/interfaces"
	"github.com/sheikh-saqib/peer-payments/internal/models"
	"github.com/sheikh-saqib/peer-payments/internal/models/events"
)

var (
	ErrInsufficientFunds = apperr.FailedPrecondition("insufficient funds")
	ErrSelfTransfer      = apperr.InvalidArgument("cannot send money to yourself")
)

type SendMoneyInput struct {
	SenderID       string
	RecipientEmail string
	Amount         decimal.Decimal
}

// SendMoney moves Amount from the sender to the account registered under
// RecipientEmail and records a send and a receive entry in the same commit.
func (l *Ledger) SendMoney(ctx context.Context, in SendMoneyInput) (models.Transfer, error) {
	ctx, span := l.startSpan(ctx, "SendMoney")
	span.SetAttributes(
		attribute.String("sender_id", in.SenderID),
		attribute.String("amount", in.Amount.String()),
	)
	fields := []zap.Field{zap.String("sender_id", in.SenderID), zap.String("amount", in.Amount.String())}

	transfer, err := l.sendMoney(ctx, in)
	if err = l.finish(span, "send money", err, fields...); err != nil {
		return models.Transfer{}, err
	}

	l.logger.Info("transfer completed", append(fields,
		zap.String("transfer_id", transfer.ID),
		zap.String("recipient_id", transfer.ToAccount))...)
	l.publishTransfer(ctx, transfer)
	return transfer, nil
}

func (l *Ledger) sendMoney(ctx context.Context, in SendMoneyInput) (models.Transfer, error) {
	if err := models.ValidateAmount(in.Amount); err != nil {
		return models.Transfer{}, err
	}
	if in.SenderID == "" {
		return models.Transfer{}, apperr.InvalidArgument("sender is required")
	}

	recipient, err := l.directory.ResolveByEmail(ctx, in.RecipientEmail)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return models.Transfer{}, apperr.NotFound("recipient not found")
	}
	if err != nil {
		return models.Transfer{}, err
	}
	if recipient.ID == in.SenderID {
		return models.Transfer{}, ErrSelfTransfer
	}

	transferID := l.newID()
	var transfer models.Transfer
	err = l.store.WithAtomicTransaction(ctx, func(tx interfaces.LedgerTx) error {
		var err error
		transfer, err = l.executeTransfer(ctx, tx, transferID, in.SenderID, recipient.ID, in.Amount)
		return err
	})
	if apperr.IsKind(err, apperr.KindNotFound) {
		return models.Transfer{}, apperr.NotFound("sender account not found")
	}
	return transfer, err
}

// executeTransfer performs the four transfer writes on tx. The funds check
// reads the sender inside the transaction, so it holds at commit time.
func (l *Ledger) executeTransfer(ctx context.Context, tx interfaces.LedgerTx, transferID, senderID, recipientID string, amount decimal.Decimal) (models.Transfer, error) {
	sender, recipient, err := lockPair(ctx, tx, senderID, recipientID)
	if err != nil {
		return models.Transfer{}, err
	}
	if sender.Balance.LessThan(amount) {
		return models.Transfer{}, ErrInsufficientFunds
	}

	transfer := models.NewTransfer(transferID, sender, recipient, amount, l.now())

	if err := tx.AdjustBalance(ctx, sender.ID, amount.Neg()); err != nil {
		return models.Transfer{}, err
	}
	if err := tx.AdjustBalance(ctx, recipient.ID, amount); err != nil {
		return models.Transfer{}, err
	}
	if err := tx.AppendEntry(ctx, transfer.Debit); err != nil {
		return models.Transfer{}, err
	}
	if err := tx.AppendEntry(ctx, transfer.Credit); err != nil {
		return models.Transfer{}, err
	}
	return transfer, nil
}

// lockPair reads both accounts for update in id order so two opposite
// transfers cannot deadlock each other.
func lockPair(ctx context.Context, tx interfaces.LedgerTx, senderID, recipientID string) (models.Account, models.Account, error) {
	first, second := senderID, recipientID
	if second < first {
		first, second = second, first
	}

	a, err := tx.GetAccountForUpdate(ctx, first)
	if err != nil {
		return models.Account{}, models.Account{}, err
	}
	b, err := tx.GetAccountForUpdate(ctx, second)
	if err != nil {
		return models.Account{}, models.Account{}, err
	}

	if a.ID == senderID {
		return a, b, nil
	}
	return b, a, nil
}

func (l *Ledger) publishTransfer(ctx context.Context, t models.Transfer) {
	l.publish(ctx, events.NameTransferCompleted, t.ID, events.TransferCompleted{
		TransferID:  t.ID,
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		Amount:      t.Amount,
		RequestID:   t.RequestID,
		OccurredAt:  t.CreatedAt,
	})
}
