package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// permissionMiddleware gates an endpoint on a claims predicate.
func permissionMiddleware(allowed func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if allowed(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func manageMembersMiddleware() echo.MiddlewareFunc {
	return permissionMiddleware(func(c Claims) bool { return c.ManageMembers })
}

func approveApplicantsMiddleware() echo.MiddlewareFunc {
	return permissionMiddleware(func(c Claims) bool { return c.ApproveApplicants })
}

func manageFinanceMiddleware() echo.MiddlewareFunc {
	return permissionMiddleware(func(c Claims) bool { return c.ManageFinance })
}

func manageEventsMiddleware() echo.MiddlewareFunc {
	return permissionMiddleware(func(c Claims) bool { return c.ManageEvents })
}
