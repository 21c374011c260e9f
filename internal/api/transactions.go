package api

import (
	"github.com/labstack/echo/v4"
	"github.com/vendlink/vendcentral/internal/errs"
	"github.com/vendlink/vendcentral/internal/settlement"
)

func (h *Handler) recordTransaction(c echo.Context) error {
	var req settlement.Request
	if err := c.Bind(&req); err != nil {
		return fail(c, errs.Validation("INVALID_REQUEST", "Unable to parse transaction payload", ""))
	}
	req.DeviceID = deviceIDOf(c, req.DeviceID)

	ctx, cancel := reqCtx(c)
	defer cancel()
	txid, err := h.settlement.Record(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"transaction_id": txid})
}

func (h *Handler) listTransactions(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	filter := settlement.Filter{
		Limit:    limit,
		Offset:   offset,
		DeviceID: c.QueryParam("device_id"),
		UserID:   c.QueryParam("user_id"),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.settlement.List(ctx, filter)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"total": total, "transactions": rows})
}
