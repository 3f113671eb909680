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
	ErrAlreadyProcessed = apperr.FailedPrecondition("this request has already been processed")
	ErrSelfRequest      = apperr.InvalidArgument("cannot request money from yourself")
	ErrNotPayer         = apperr.PermissionDenied("only the payer can resolve this request")
)

type RequestMoneyInput struct {
	RequesterID string
	PayerEmail  string
	Amount      decimal.Decimal
}

// RequestMoney records a pending request for Amount addressed to the account
// registered under PayerEmail. Balances are untouched and repeated calls
// create separate requests.
func (l *Ledger) RequestMoney(ctx context.Context, in RequestMoneyInput) (models.MoneyRequest, error) {
	ctx, span := l.startSpan(ctx, "RequestMoney")
	span.SetAttributes(
		attribute.String("requester_id", in.RequesterID),
		attribute.String("amount", in.Amount.String()),
	)
	fields := []zap.Field{zap.String("requester_id", in.RequesterID), zap.String("amount", in.Amount.String())}

	req, err := l.requestMoney(ctx, in)
	if err = l.finish(span, "request money", err, fields...); err != nil {
		return models.MoneyRequest{}, err
	}

	l.logger.Info("money requested", append(fields,
		zap.String("request_id", req.ID),
		zap.String("payer_id", req.PayerID))...)
	l.publish(ctx, events.NameMoneyRequested, req.ID, events.MoneyRequested{
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		OccurredAt:  req.CreatedAt,
	})
	return req, nil
}

func (l *Ledger) requestMoney(ctx context.Context, in RequestMoneyInput) (models.MoneyRequest, error) {
	if err := models.ValidateAmount(in.Amount); err != nil {
		return models.MoneyRequest{}, err
	}

	requester, err := l.store.GetAccount(ctx, in.RequesterID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return models.MoneyRequest{}, apperr.NotFound("requester account not found")
	}
	if err != nil {
		return models.MoneyRequest{}, err
	}

	payer, err := l.directory.ResolveByEmail(ctx, in.PayerEmail)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return models.MoneyRequest{}, apperr.NotFound("user to request money from not found")
	}
	if err != nil {
		return models.MoneyRequest{}, err
	}
	if payer.ID == requester.ID {
		return models.MoneyRequest{}, ErrSelfRequest
	}

	req := models.MoneyRequest{
		ID:             l.newID(),
		RequesterID:    requester.ID,
		RequesterEmail: requester.Email,
		PayerEmail:     payer.Email,
		PayerID:        payer.ID,
		Amount:         in.Amount,
		Status:         models.RequestPending,
		CreatedAt:      l.now(),
	}
	if err := l.store.SaveRequest(ctx, req); err != nil {
		return models.MoneyRequest{}, err
	}
	return req, nil
}

type HandleMoneyRequestInput struct {
	RequestID string
	ActorID   string
	Action    models.RequestAction
}

// HandleMoneyRequest approves or rejects a pending request on behalf of its
// payer. Approval moves the money and marks the request approved in a single
// commit; when the payer cannot cover the amount the request stays pending.
func (l *Ledger) HandleMoneyRequest(ctx context.Context, in HandleMoneyRequestInput) (models.MoneyRequest, error) {
	ctx, span := l.startSpan(ctx, "HandleMoneyRequest")
	span.SetAttributes(
		attribute.String("request_id", in.RequestID),
		attribute.String("actor_id", in.ActorID),
		attribute.String("action", in.Action.String()),
	)
	fields := []zap.Field{
		zap.String("request_id", in.RequestID),
		zap.String("actor_id", in.ActorID),
		zap.Stringer("action", in.Action),
	}

	req, transfer, err := l.handleMoneyRequest(ctx, in)
	if err = l.finish(span, "handle money request", err, fields...); err != nil {
		return models.MoneyRequest{}, err
	}

	l.logger.Info("money request resolved", append(fields, zap.String("status", string(req.Status)))...)
	if transfer != nil {
		l.publishTransfer(ctx, *transfer)
	}
	l.publish(ctx, events.NameMoneyRequestResolved, req.ID, events.MoneyRequestResolved{
		RequestID:  req.ID,
		Status:     string(req.Status),
		ResolvedBy: in.ActorID,
		OccurredAt: *req.ResolvedAt,
	})
	return req, nil
}

func (l *Ledger) handleMoneyRequest(ctx context.Context, in HandleMoneyRequestInput) (models.MoneyRequest, *models.Transfer, error) {
	outcome, err := in.Action.Outcome()
	if err != nil {
		return models.MoneyRequest{}, nil, err
	}
	if in.RequestID == "" {
		return models.MoneyRequest{}, nil, apperr.InvalidArgument("request id is required")
	}

	transferID := l.newID()
	resolvedAt := l.now()
	var (
		req      models.MoneyRequest
		transfer *models.Transfer
	)
	err = l.store.WithAtomicTransaction(ctx, func(tx interfaces.LedgerTx) error {
		transfer = nil

		var err error
		req, err = tx.GetRequestForUpdate(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return ErrAlreadyProcessed
		}
		if req.PayerID != in.ActorID {
			return ErrNotPayer
		}

		switch in.Action {
		case models.ActionApprove:
			t, err := l.executeTransfer(ctx, tx, transferID, req.PayerID, req.RequesterID, req.Amount)
			if err != nil {
				return err
			}
			t.RequestID = req.ID
			transfer = &t
		case models.ActionReject:
			// status change only
		}

		return tx.SetRequestStatus(ctx, req.ID, outcome, resolvedAt)
	})
	if err != nil {
		return models.MoneyRequest{}, nil, err
	}

	req.Status = outcome
	req.ResolvedAt = &resolvedAt
	return req, transfer, nil
}

// GetMoneyRequest returns a request to one of its two parties.
func (l *Ledger) GetMoneyRequest(ctx context.Context, requestID, actorID string) (models.MoneyRequest, error) {
	ctx, span := l.startSpan(ctx, "GetMoneyRequest")
	fields := []zap.Field{zap.String("request_id", requestID), zap.String("actor_id", actorID)}

	req, err := l.store.GetRequest(ctx, requestID)
	if err == nil && actorID != req.PayerID && actorID != req.RequesterID {
		err = apperr.PermissionDenied("only the requester or the payer can view this request")
	}
	if err = l.finish(span, "get money request", err, fields...); err != nil {
		return models.MoneyRequest{}, err
	}
	return req, nil
}
