package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
)

// RequestStatus is the lifecycle state of a money request.
//
//	pending --approve--> approved
//	pending --reject---> rejected
//
// approved and rejected are terminal.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// RequestAction is how a payer resolves a pending request.
type RequestAction int

const (
	ActionApprove RequestAction = iota + 1
	ActionReject
)

// ParseRequestAction accepts "approve" or "reject".
func ParseRequestAction(s string) (RequestAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return ActionApprove, nil
	case "reject":
		return ActionReject, nil
	}
	return 0, apperr.InvalidArgument(`invalid action, must be "approve" or "reject"`)
}

func (a RequestAction) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	}
	return "unknown"
}

// Outcome is the status a pending request moves to under the action.
func (a RequestAction) Outcome() (RequestStatus, error) {
	switch a {
	case ActionApprove:
		return RequestApproved, nil
	case ActionReject:
		return RequestRejected, nil
	}
	return "", apperr.InvalidArgument(`invalid action, must be "approve" or "reject"`)
}

// MoneyRequest asks PayerID to send Amount to RequesterID.
type MoneyRequest struct {
	ID             string          `json:"id"`
	RequesterID    string          `json:"requesterId"`
	RequesterEmail string          `json:"requesterEmail"`
	PayerEmail     string          `json:"fromEmail"`
	PayerID        string          `json:"fromUserId"`
	Amount         decimal.Decimal `json:"amount"`
	Status         RequestStatus   `json:"status"`
	CreatedAt      time.Time       `json:"timestamp"`
	ResolvedAt     *time.Time      `json:"resolvedAt,omitempty"`
}

// Validate checks the request before it is persisted.
func (r MoneyRequest) Validate() error {
	switch {
	case r.ID == "":
		return apperr.InvalidArgument("money request id is required")
	case r.RequesterID == "" || r.PayerID == "":
		return apperr.InvalidArgument("money request requires requester and payer accounts")
	case NormalizeEmail(r.RequesterEmail) == "" || NormalizeEmail(r.PayerEmail) == "":
		return apperr.InvalidArgument("money request requires requester and payer emails")
	case !r.Status.Valid():
		return apperr.InvalidArgument("money request status is invalid")
	case r.CreatedAt.IsZero():
		return apperr.InvalidArgument("money request requires a timestamp")
	}
	return ValidateAmount(r.Amount)
}
