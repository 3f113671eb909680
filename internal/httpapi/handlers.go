package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	"github.com/sheikh-saqib/peer-payments/internal/ledger"
	"github.com/sheikh-saqib/peer-payments/internal/models"
)

type sendMoneyRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	RecipientEmail string          `json:"recipientEmail"`
	SenderID       string          `json:"senderId"`
}

type requestMoneyRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	FromEmail   string          `json:"fromEmail"`
	RequesterID string          `json:"requesterId"`
}

type handleMoneyRequestRequest struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

type openAccountRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// userSummary is what other callers may see of an account.
type userSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type successResponse struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transferId,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	Status     string `json:"status,omitempty"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, "invalid request body", err)
	}
	return nil
}

// actingAs resolves the account an operation runs for. The body may name the
// caller explicitly but never anyone else.
func actingAs(c *fiber.Ctx, claimed string) (string, error) {
	id, err := mustIdentity(c)
	if err != nil {
		return "", err
	}
	if claimed != "" && claimed != id.AccountID {
		return "", apperr.PermissionDenied("cannot act on behalf of another user")
	}
	return id.AccountID, nil
}

func (s *Server) sendMoney(c *fiber.Ctx) error {
	var req sendMoneyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	senderID, err := actingAs(c, req.SenderID)
	if err != nil {
		return err
	}

	transfer, err := s.ledger.SendMoney(c.UserContext(), ledger.SendMoneyInput{
		SenderID:       senderID,
		RecipientEmail: req.RecipientEmail,
		Amount:         req.Amount,
	})
	if err != nil {
		return err
	}
	return c.JSON(successResponse{Success: true, TransferID: transfer.ID})
}

func (s *Server) requestMoney(c *fiber.Ctx) error {
	var req requestMoneyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	requesterID, err := actingAs(c, req.RequesterID)
	if err != nil {
		return err
	}

	created, err := s.ledger.RequestMoney(c.UserContext(), ledger.RequestMoneyInput{
		RequesterID: requesterID,
		PayerEmail:  req.FromEmail,
		Amount:      req.Amount,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(successResponse{Success: true, RequestID: created.ID})
}

func (s *Server) handleMoneyRequest(c *fiber.Ctx) error {
	var req handleMoneyRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	actorID, err := actingAs(c, "")
	if err != nil {
		return err
	}
	action, err := models.ParseRequestAction(req.Action)
	if err != nil {
		return err
	}

	resolved, err := s.ledger.HandleMoneyRequest(c.UserContext(), ledger.HandleMoneyRequestInput{
		RequestID: req.RequestID,
		ActorID:   actorID,
		Action:    action,
	})
	if err != nil {
		return err
	}
	return c.JSON(successResponse{Success: true, RequestID: resolved.ID, Status: string(resolved.Status)})
}

func (s *Server) getAccount(c *fiber.Ctx) error {
	accountID, err := actingAs(c, "")
	if err != nil {
		return err
	}
	account, err := s.ledger.GetAccount(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(account)
}

func (s *Server) listTransactions(c *fiber.Ctx) error {
	accountID, err := actingAs(c, "")
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	if limit < 0 || limit > 100 {
		return apperr.InvalidArgument("limit must be between 1 and 100")
	}

	entries, err := s.ledger.History(c.UserContext(), accountID, limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return c.JSON(fiber.Map{"transactions": entries})
}

func (s *Server) listPendingRequests(c *fiber.Ctx) error {
	accountID, err := actingAs(c, "")
	if err != nil {
		return err
	}
	requests, err := s.ledger.PendingRequests(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	if requests == nil {
		requests = []models.MoneyRequest{}
	}
	return c.JSON(fiber.Map{"moneyRequests": requests})
}

// openAccount creates the caller's account at sign-up. The account id is the
// token subject; the email comes from the token or, when the token has none,
// from the body.
func (s *Server) openAccount(c *fiber.Ctx) error {
	var req openAccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	email := models.NormalizeEmail(id.Email)
	if claimed := models.NormalizeEmail(req.Email); claimed != "" {
		if email != "" && claimed != email {
			return apperr.PermissionDenied("email does not match the authenticated user")
		}
		email = claimed
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(req.FirstName + " " + req.LastName)
	}

	account, err := s.ledger.OpenAccount(c.UserContext(), ledger.OpenAccountInput{
		ID:          id.AccountID,
		Email:       email,
		DisplayName: displayName,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (s *Server) searchUsers(c *fiber.Ctx) error {
	callerID, err := actingAs(c, "")
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	if limit < 0 || limit > 100 {
		return apperr.InvalidArgument("limit must be between 1 and 100")
	}

	accounts, err := s.ledger.SearchUsers(c.UserContext(), callerID, c.Query("q"), limit)
	if err != nil {
		return err
	}
	users := make([]userSummary, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, userSummary{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName})
	}
	return c.JSON(fiber.Map{"users": users})
}

func (s *Server) getMoneyRequest(c *fiber.Ctx) error {
	actorID, err := actingAs(c, "")
	if err != nil {
		return err
	}
	req, err := s.ledger.GetMoneyRequest(c.UserContext(), c.Params("id"), actorID)
	if err != nil {
		return err
	}
	return c.JSON(req)
}
