package api

import (
	"github.com/labstack/echo/v4"
	"github.com/vendlink/vendcentral/internal/directory"
	"github.com/vendlink/vendcentral/internal/errs"
)

func (h *Handler) registerUser(c echo.Context) error {
	var payload directory.RegisterRequest
	if err := c.Bind(&payload); err != nil {
		return fail(c, errs.Validation("INVALID_REQUEST", "Unable to parse registration payload", ""))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.directory.Register(ctx, payload); err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"user_id": payload.UserID, "message": "Success"})
}

type loginPayload struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (h *Handler) loginUser(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, errs.Auth())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	profile, token, err := h.directory.Authenticate(ctx, payload.PhoneNumber, payload.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"user": profile, "token": token})
}

func (h *Handler) getUser(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	profile, err := h.directory.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"user": profile})
}

func (h *Handler) listUsers(c echo.Context) error {
	limit, offset := parseLimitOffset(c)

	ctx, cancel := reqCtx(c)
	defer cancel()
	users, total, err := h.directory.List(ctx, limit, offset, c.QueryParam("search"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"total": total, "users": users})
}
