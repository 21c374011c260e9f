package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vendlink/vendcentral/internal/errs"
)

// ok renders the success envelope. Extra fields ride alongside the flag, the
// wire contract every client of the original server expects.
func ok(c echo.Context, data echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range data {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

// fail renders the failure envelope with the status mapped from the error
// kind. Only the stable code and human message go out; causes stay in logs.
func fail(c echo.Context, err error) error {
	e := errs.AsError(err)
	body := echo.Map{
		"success": false,
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Field != "" {
		body["field"] = e.Field
	}
	return c.JSON(statusOf(e.Kind), body)
}

func statusOf(k errs.Kind) int {
	switch k {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// parseLimitOffset reads the original limit/offset paging parameters.
func parseLimitOffset(c echo.Context) (limit, offset int) {
	limit = 20
	offset = 0
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
