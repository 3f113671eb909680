// Package httpapi exposes the ledger operations over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	"github.com/sheikh-saqib/peer-payments/internal/auth"
	"github.com/sheikh-saqib/peer-payments/internal/ledger"
)

type Server struct {
	app      *fiber.App
	ledger   *ledger.Ledger
	verifier *auth.Verifier
	logger   *zap.Logger
}

func NewServer(l *ledger.Ledger, verifier *auth.Verifier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{ledger: l, verifier: verifier, logger: logger}

	s.app = fiber.New(fiber.Config{
		AppName:               "peer-payments",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.accessLog)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/v1", s.authenticate)
	v1.Post("/sendMoney", s.sendMoney)
	v1.Post("/requestMoney", s.requestMoney)
	v1.Post("/handleMoneyRequest", s.handleMoneyRequest)
	v1.Post("/accounts", s.openAccount)
	v1.Get("/accounts/me", s.getAccount)
	v1.Get("/users", s.searchUsers)
	v1.Get("/transactions", s.listTransactions)
	v1.Get("/moneyRequests/pending", s.listPendingRequests)
	v1.Get("/moneyRequests/:id", s.getMoneyRequest)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// handleError renders every error as {"error": {"kind", "code", "message"}},
// where code is the canonical gRPC code name for the kind.
// Internal causes are never sent to the client.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := apperr.KindInternal
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			kind = apperr.KindNotFound
		case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			kind = apperr.KindInvalidArgument
		}
		return c.Status(fiberErr.Code).JSON(newErrorResponse(kind, fiberErr.Message))
	}

	kind := apperr.KindOf(err)
	message := "internal error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if kind == apperr.KindInternal {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(kind.HTTPStatus()).JSON(newErrorResponse(kind, message))
}

func newErrorResponse(kind apperr.Kind, message string) errorResponse {
	return errorResponse{Error: errorBody{
		Kind:    string(kind),
		Code:    kind.GRPCCode().String(),
		Message: message,
	}}
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if hErr := c.App().ErrorHandler(c, err); hErr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	fields := []zap.Field{
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	}
	if id, ok := identityFrom(c); ok {
		fields = append(fields, zap.String("account_id", id.AccountID))
	}
	s.logger.Info("http request", fields...)
	return nil
}
