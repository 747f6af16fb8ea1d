package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/floorlog/internal/repository/memory"
	"github.com/mamadbah2/floorlog/internal/server/handlers"
	accesssvc "github.com/mamadbah2/floorlog/internal/service/access"
	exportsvc "github.com/mamadbah2/floorlog/internal/service/export"
	recordssvc "github.com/mamadbah2/floorlog/internal/service/records"
	reportingsvc "github.com/mamadbah2/floorlog/internal/service/reporting"
)

type testApp struct {
	t      *testing.T
	engine *gin.Engine
	today  string
	cookie []*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store := memory.NewStore()
	require.NoError(t, store.SeedAccessCode(context.Background(), "1234"))

	recordsSvc := recordssvc.NewService(store, time.UTC, logger)
	reportingSvc := reportingsvc.NewService(store, time.UTC, logger)
	exportSvc := exportsvc.NewService(reportingSvc, nil, "", logger)

	engine := New(Handlers{
		Auth:    handlers.NewAuthHandler(accesssvc.NewGate(store, logger), logger),
		Records: handlers.NewRecordsHandler(recordsSvc, logger),
		Reports: handlers.NewReportsHandler(reportingSvc, exportSvc, logger),
		Health:  handlers.NewHealthHandler(store, nil, logger),
	}, SessionOptions{Secret: []byte("test-secret-test-secret-test-sec"), MaxAge: time.Hour}, logger)

	return &testApp{t: t, engine: engine, today: recordsSvc.Today()}
}

func (a *testApp) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range a.cookie {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)

	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		a.cookie = cookies
	}
	return rec
}

func (a *testApp) login() {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/verify", map[string]any{"code": " 1234 "})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testApp) group1Payload(line string) map[string]any {
	return map[string]any{
		"collectionDate": a.today,
		"productionLine": line,
		"sku":            "PX-1",
		"lineSpeed":      420,
	}
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/auth/status", nil)
	assert.Equal(t, false, decode(t, rec)["authenticated"])

	rec = app.do(http.MethodPost, "/auth/verify", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodPost, "/auth/verify", map[string]any{"code": "12345"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	app.login()
	rec = app.do(http.MethodGet, "/auth/status", nil)
	assert.Equal(t, true, decode(t, rec)["authenticated"])

	rec = app.do(http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(http.MethodGet, "/records/group1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/records/group1", "/records/group2/1", "/reports/days"} {
		rec := app.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRecordLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.login()

	rec := app.do(http.MethodPost, "/records/group1", app.group1Payload("L90"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "L90", created["productionLine"])
	assert.Equal(t, 420.0, created["lineSpeed"])
	assert.Equal(t, 0.0, created["film1x1"])
	id := int64(created["id"].(float64))

	rec = app.do(http.MethodPost, "/records/group1", app.group1Payload("L90"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "L90")

	rec = app.do(http.MethodGet, "/records/group1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	path := "/records/group1/" + jsonNumber(id)
	rec = app.do(http.MethodPut, path, map[string]any{"sku": "PX-2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PX-2", decode(t, rec)["sku"])

	rec = app.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = app.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRejections(t *testing.T) {
	app := newTestApp(t)
	app.login()

	payload := app.group1Payload("L90")
	payload["collectionDate"] = "2000-01-01"
	rec := app.do(http.MethodPost, "/records/group1", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodPost, "/records/group1", app.group1Payload("L80"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "invalid payload", body["error"])
	assert.Len(t, body["details"], 2)

	rec = app.do(http.MethodPost, "/records/group1", "[1, 2]")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodPost, "/records/group3", app.group1Payload("L90"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodGet, "/records/group1/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDayRoutes(t *testing.T) {
	app := newTestApp(t)
	app.login()

	for _, line := range []string{"L90", "L91"} {
		rec := app.do(http.MethodPost, "/records/group1", app.group1Payload(line))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(http.MethodGet, "/reports/days?filter=thisMonth", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var days []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
	require.Len(t, days, 1)
	assert.Equal(t, 2.0, days[0]["total"])

	rec = app.do(http.MethodGet, "/reports/days?filter=specificDay", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodGet, "/reports/days/"+app.today+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Rotacao_de_Bombas_")

	rec = app.do(http.MethodPost, "/reports/days/"+app.today+"/sheets", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = app.do(http.MethodDelete, "/reports/days/"+app.today, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["deleted"], 2)

	rec = app.do(http.MethodGet, "/reports/days/"+app.today, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodGet, "/reports/days/yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["db"])
	assert.Nil(t, body["backend"])
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	out := httptest.NewRecorder()
	app.engine.ServeHTTP(out, req)
	assert.Equal(t, "abc-123", out.Header().Get(requestIDHeader))
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
