package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID stringifies the authenticated user ID stored by Authorize
// for use in rate-limit keys; unauthenticated requests map to "guest".

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

func currentUserID(c echo.Context) string {
	if uid, ok := c.Get(CtxUserID).(uint64); ok && uid != 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "guest"
}
