package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sheikh-saqib/peer-payments/internal/auth"
)

const identityKey = "identity"

// authenticate requires a valid bearer token and stores the caller identity.
func (s *Server) authenticate(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return auth.ErrUnauthenticated
	}
	id, err := s.verifier.Verify(token)
	if err != nil {
		return err
	}
	c.Locals(identityKey, id)
	return c.Next()
}

func identityFrom(c *fiber.Ctx) (auth.Identity, bool) {
	id, ok := c.Locals(identityKey).(auth.Identity)
	return id, ok
}

func mustIdentity(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := identityFrom(c)
	if !ok {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return id, nil
}
