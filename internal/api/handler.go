// Package api wires the HTTP routes onto the domain services.
package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vendlink/vendcentral/internal/catalog"
	"github.com/vendlink/vendcentral/internal/devicefleet"
	"github.com/vendlink/vendcentral/internal/directory"
	"github.com/vendlink/vendcentral/internal/settlement"
)

// Every store operation runs under this bound; a blown deadline surfaces as
// an internal error to the caller.
const requestTimeout = 5 * time.Second

type Handler struct {
	catalog    *catalog.Service
	settlement *settlement.Service
	directory  *directory.Service
	fleet      *devicefleet.Service
	version    string
}

func NewHandler(
	cat *catalog.Service,
	set *settlement.Service,
	dir *directory.Service,
	fleet *devicefleet.Service,
	version string,
) *Handler {
	return &Handler{catalog: cat, settlement: set, directory: dir, fleet: fleet, version: version}
}

// Register mounts all routes on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.healthCheck)

	api := e.Group("/api")

	api.GET("/products", h.listProducts)
	api.POST("/products/batch_sync", h.batchSyncProducts)
	api.POST("/products/set_custom", h.setCustomPrice)
	api.GET("/inventory/stats", h.inventoryStats)

	api.POST("/user/register", h.registerUser)
	api.POST("/user/login", h.loginUser)
	api.GET("/user/:id", h.getUser)
	api.GET("/users", h.listUsers)

	api.POST("/transactions/record", h.recordTransaction)
	api.GET("/transactions", h.listTransactions)

	api.POST("/devices/register", h.registerDevice)
	api.GET("/devices", h.listDevices)
	api.GET("/devices/:id", h.getDevice)
	api.POST("/device/data", h.appendDeviceData)
	api.GET("/device/data/:id", h.queryDeviceData)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// deviceIDOf resolves the device identity: header first, then the fallback
// extracted from the payload.
func deviceIDOf(c echo.Context, fallback string) string {
	if id := c.Request().Header.Get("X-Device-ID"); id != "" {
		return id
	}
	return fallback
}

func (h *Handler) healthCheck(c echo.Context) error {
	return ok(c, echo.Map{
		"status":  "OK",
		"message": "Vending Machine Central Server is running",
		"version": h.version,
	})
}
