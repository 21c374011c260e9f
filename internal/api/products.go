package api

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/vendlink/vendcentral/internal/catalog"
	"github.com/vendlink/vendcentral/internal/errs"
	"github.com/vendlink/vendcentral/pkg/optional"
)

type batchSyncPayload struct {
	Products []syncProductPayload `json:"products"`
}

type syncProductPayload struct {
	DeviceID string  `json:"device_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int64   `json:"quantity"`
}

func (h *Handler) batchSyncProducts(c echo.Context) error {
	var payload batchSyncPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, errs.Validation("INVALID_REQUEST", "Unable to parse sync payload", ""))
	}

	// device id via header, or carried on the first product
	fallback := ""
	if len(payload.Products) > 0 {
		fallback = payload.Products[0].DeviceID
	}
	deviceID := deviceIDOf(c, fallback)

	products := make([]catalog.SyncProduct, 0, len(payload.Products))
	for _, p := range payload.Products {
		products = append(products, catalog.SyncProduct{
			Name:     p.Name,
			Price:    p.Price,
			Image:    p.Image,
			Quantity: p.Quantity,
		})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	count, err := h.catalog.SyncBatch(ctx, deviceID, products)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"message": fmt.Sprintf("Synced %d items", count)})
}

type setCustomPayload struct {
	DeviceID  string           `json:"device_id"`
	ItemName  string           `json:"item_name"`
	Price     optional.Float64 `json:"price"`
	CostPrice optional.Float64 `json:"cost_price"`
}

func (h *Handler) setCustomPrice(c echo.Context) error {
	var payload setCustomPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, errs.Validation("INVALID_REQUEST", "Unable to parse override payload", ""))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.catalog.SetCustomPrice(ctx, payload.DeviceID, payload.ItemName, payload.Price, payload.CostPrice); err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{})
}

func (h *Handler) listProducts(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.catalog.Resolve(ctx, deviceIDOf(c, ""))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"products": items})
}

func (h *Handler) inventoryStats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.catalog.SalesStats(ctx)
	if err != nil {
		return fail(c, err)
	}
	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.ItemName] = r.UnitsSold
	}
	return ok(c, echo.Map{"stats": stats})
}
