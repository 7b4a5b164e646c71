package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"soulcircle/internal/adapter/api/middleware"
	"soulcircle/internal/usecase"
)

// actor is the authenticated caller of the request.
func actor(c echo.Context) usecase.Actor {
	return usecase.Actor{
		ID:   middleware.UserID(c),
		Name: middleware.UserName(c),
	}
}

// bindAndValidate decodes the request body into req and validates it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// queryInt reads a non-negative integer query parameter, or def.
func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}
