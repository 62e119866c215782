package handler

import (
	"net/http"
	"strconv"
	"time"

	"purchase-order-service/internal/store"

	"github.com/labstack/echo/v4"
)

// Handler exposes the purchase order workflow over HTTP. It holds the data
// store behind the Store interface so tests and demos can swap in the
// in-memory implementation.
type Handler struct {
	store store.Store
}

// New creates a Handler backed by the given store.
func New(s store.Store) *Handler {
	return &Handler{store: s}
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// parseDate parses an optional YYYY-MM-DD request field.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// currentUserID returns the verified principal set by the auth middleware.
func currentUserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("user_id").(uint)
	return id, ok
}

// unauthenticated is the shared response for requests without a verified
// principal.
func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
}
