package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendlink/vendcentral/config"
	"github.com/vendlink/vendcentral/internal/catalog"
	"github.com/vendlink/vendcentral/internal/devicefleet"
	"github.com/vendlink/vendcentral/internal/directory"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/internal/settlement"
	"github.com/vendlink/vendcentral/internal/webserver"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))

	cfg := config.LoadConfig("")
	cat := catalog.NewService(db, nil, 0, nil)
	set := settlement.NewService(db, false, nil, cat.InvalidateCache)
	dir := directory.NewService(db, cfg.Web.Secret, nil)
	fleet := devicefleet.NewService(db, nil)

	server := webserver.New(cfg)
	NewHandler(cat, set, dir, fleet, cfg.System.Version).Register(server.Echo())
	return server.Echo()
}

func do(t *testing.T, e *echo.Echo, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestHealthCheck(t *testing.T) {
	e := newTestServer(t)
	rec, body := do(t, e, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "OK", body["status"])
}

func TestSyncThenListProducts(t *testing.T) {
	e := newTestServer(t)

	rec, body := do(t, e, http.MethodPost, "/api/products/batch_sync",
		`{"products":[{"name":"Coke","price":15000,"quantity":10}]}`,
		map[string]string{"X-Device-ID": "D1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Synced 1 items", body["message"])

	rec, body = do(t, e, http.MethodGet, "/api/products", "",
		map[string]string{"X-Device-ID": "D1"})
	require.Equal(t, http.StatusOK, rec.Code)
	products := body["products"].([]interface{})
	require.Len(t, products, 1)
	p := products[0].(map[string]interface{})
	assert.Equal(t, "Coke", p["item_name"])
	assert.Equal(t, 15000.0, p["price"])
	assert.Equal(t, 10.0, p["units_left"])

	// master view has no stock field
	rec, body = do(t, e, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = body["products"].([]interface{})[0].(map[string]interface{})
	_, hasStock := p["units_left"]
	assert.False(t, hasStock)
}

func TestSyncMissingDeviceID(t *testing.T) {
	e := newTestServer(t)
	rec, body := do(t, e, http.MethodPost, "/api/products/batch_sync",
		`{"products":[{"name":"Coke","price":15000}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "MISSING_DEVICE_ID", body["code"])
}

func TestSetCustomPriceOverride(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPost, "/api/products/batch_sync",
		`{"products":[{"name":"Coke","price":15000,"quantity":10}]}`,
		map[string]string{"X-Device-ID": "D1"})

	rec, _ := do(t, e, http.MethodPost, "/api/products/set_custom",
		`{"device_id":"D1","item_name":"Coke","price":12000}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := do(t, e, http.MethodGet, "/api/products", "",
		map[string]string{"X-Device-ID": "D1"})
	p := body["products"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 12000.0, p["price"])
	assert.Equal(t, true, p["custom"])

	_, body = do(t, e, http.MethodGet, "/api/products", "", nil)
	p = body["products"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 15000.0, p["price"])
}

func TestUserRegisterLoginFlow(t *testing.T) {
	e := newTestServer(t)

	payload := `{"user_id":"u1","full_name":"A","phone_number":"0900000001","birthday":"1990-01-01","password":"pw"}`
	rec, body := do(t, e, http.MethodPost, "/api/user/register", payload, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", body["user_id"])

	// duplicate registration conflicts
	rec, body = do(t, e, http.MethodPost, "/api/user/register", payload, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = do(t, e, http.MethodPost, "/api/user/login",
		`{"phone_number":"0900000001","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "u1", user["user_id"])

	rec, body = do(t, e, http.MethodPost, "/api/user/login",
		`{"phone_number":"0900000001","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	rec, body = do(t, e, http.MethodGet, "/api/user/u1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user = body["user"].(map[string]interface{})
	assert.Equal(t, "0900000001", user["phone_number"])

	rec, _ = do(t, e, http.MethodGet, "/api/user/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordTransactionFlow(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPost, "/api/products/batch_sync",
		`{"products":[{"name":"Coke","price":15000,"quantity":10}]}`,
		map[string]string{"X-Device-ID": "D1"})

	rec, body := do(t, e, http.MethodPost, "/api/transactions/record",
		`{"total_amount":30000,"items":[{"name":"Coke","quantity":2}]}`,
		map[string]string{"X-Device-ID": "D1"})
	require.Equal(t, http.StatusOK, rec.Code)
	txid := body["transaction_id"].(string)
	assert.True(t, strings.HasPrefix(txid, "trans_"))

	_, body = do(t, e, http.MethodGet, "/api/products", "",
		map[string]string{"X-Device-ID": "D1"})
	p := body["products"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 8.0, p["units_left"])

	rec, body = do(t, e, http.MethodGet, "/api/transactions?device_id=D1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["total"])

	_, body = do(t, e, http.MethodGet, "/api/inventory/stats", "", nil)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, 2.0, stats["Coke"])
}

func TestRecordTransactionValidation(t *testing.T) {
	e := newTestServer(t)
	rec, body := do(t, e, http.MethodPost, "/api/transactions/record",
		`{"items":[{"name":"Coke"}]}`, map[string]string{"X-Device-ID": "D1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_TOTAL_AMOUNT", body["code"])
}

func TestDeviceRegistryAndData(t *testing.T) {
	e := newTestServer(t)

	rec, _ := do(t, e, http.MethodPost, "/api/devices/register",
		`{"device_id":"D1","device_name":"Lobby","device_type":"vending"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, e, http.MethodGet, "/api/devices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["devices"].([]interface{}), 1)

	rec, _ = do(t, e, http.MethodPost, "/api/device/data",
		`{"device_id":"D1","data_type":"sensor","payload":{"temp":4.5}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, e, http.MethodGet, "/api/device/data/D1?data_type=sensor", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)

	rec, _ = do(t, e, http.MethodGet, "/api/devices/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
