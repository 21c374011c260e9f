package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vendlink/vendcentral/internal/devicefleet"
	"github.com/vendlink/vendcentral/internal/errs"
)

func (h *Handler) registerDevice(c echo.Context) error {
	var payload devicefleet.RegisterRequest
	if err := c.Bind(&payload); err != nil {
		return fail(c, errs.Validation("INVALID_REQUEST", "Unable to parse device payload", ""))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.fleet.Register(ctx, payload); err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"device_id": payload.DeviceID})
}

func (h *Handler) listDevices(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	devices, err := h.fleet.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"devices": devices})
}

func (h *Handler) getDevice(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	device, err := h.fleet.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"device": device})
}

type deviceDataPayload struct {
	DeviceID  string                 `json:"device_id"`
	DataType  string                 `json:"data_type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp string                 `json:"timestamp"`
}

func (h *Handler) appendDeviceData(c echo.Context) error {
	var payload deviceDataPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, errs.Validation("INVALID_REQUEST", "Unable to parse device data", ""))
	}

	at := time.Time{}
	if payload.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, payload.Timestamp)
		if err != nil {
			return fail(c, errs.Validation("INVALID_TIMESTAMP", "Timestamp must be RFC3339", "timestamp"))
		}
		at = parsed
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	deviceID := deviceIDOf(c, payload.DeviceID)
	if err := h.fleet.AppendData(ctx, deviceID, payload.DataType, payload.Payload, at); err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{})
}

func (h *Handler) queryDeviceData(c echo.Context) error {
	limit := 100
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.fleet.QueryData(ctx, c.Param("id"), c.QueryParam("data_type"), limit)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"data": rows})
}
