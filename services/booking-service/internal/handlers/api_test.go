package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (a *testApp) doJSON(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.client.Do(req)
	require.NoError(t, err)
	return resp, []byte(readBody(t, resp))
}

func decodeError(t *testing.T, body []byte) errorDetail {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Error
}

func TestAPIBookingFlow(t *testing.T) {
	app := newTestApp(t)
	req := map[string]string{
		"name": "Alice", "email": "alice@example.com", "phone": "555-0100",
		"service": "Cut", "date": "2024-06-01", "time": "10:00",
	}

	resp, body := app.doJSON(t, http.MethodPost, "/api/v1/appointments", "", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created appointmentResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Pending", created.Status)
	assert.Equal(t, "10:00", created.Time)
	assert.Equal(t, "/api/v1/appointments/1", resp.Header.Get("Location"))

	req["name"] = "Bob"
	resp, body = app.doJSON(t, http.MethodPost, "/api/v1/appointments", "", req)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "slot_taken", decodeError(t, body).Code)

	req["time"] = "25:00"
	resp, body = app.doJSON(t, http.MethodPost, "/api/v1/appointments", "", req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", decodeError(t, body).Code)

	resp, _ = app.doJSON(t, http.MethodGet, "/api/v1/appointments/1", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = app.doJSON(t, http.MethodGet, "/api/v1/appointments/2", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, body).Code)

	resp, _ = app.doJSON(t, http.MethodPost, "/api/v1/appointments/lookup", "", map[string]string{"email": "alice@example.com", "id": "1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = app.doJSON(t, http.MethodPost, "/api/v1/appointments/lookup", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = app.doJSON(t, http.MethodPost, "/api/v1/appointments/lookup", "", map[string]any{"email": "alice@example.com", "id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found appointmentResponse
	require.NoError(t, json.Unmarshal(body, &found))
	assert.Equal(t, int64(1), found.ID)

	resp, _ = app.doJSON(t, http.MethodPost, "/api/v1/appointments/lookup", "", map[string]any{"email": "alice@example.com", "id": 2})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for _, id := range []any{"abc", 1.5, true} {
		resp, body = app.doJSON(t, http.MethodPost, "/api/v1/appointments/lookup", "", map[string]any{"email": "alice@example.com", "id": id})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "id %v", id)
		assert.Equal(t, "invalid_request", decodeError(t, body).Code)
	}

	resp, body = app.doJSON(t, http.MethodGet, "/api/v1/availability?date=2024-06-01", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var avail availabilityResponse
	require.NoError(t, json.Unmarshal(body, &avail))
	assert.Equal(t, "2024-06-01", avail.Date)
	assert.Contains(t, avail.Times, "09:00")
	assert.NotContains(t, avail.Times, "10:00")
}

func TestAPIAdminFlow(t *testing.T) {
	app := newTestApp(t)
	resp, _ := app.doJSON(t, http.MethodPost, "/api/v1/appointments", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "phone": "555-0100",
		"service": "Cut", "date": "2024-06-01", "time": "10:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := app.doJSON(t, http.MethodGet, "/api/v1/admin/appointments", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decodeError(t, body).Code)

	resp, _ = app.doJSON(t, http.MethodPatch, "/api/v1/admin/appointments/1", "bogus", map[string]string{"status": "Cancelled"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = app.doJSON(t, http.MethodPost, "/api/v1/admin/sessions", "", map[string]string{"username": testOperator, "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", decodeError(t, body).Code)

	resp, body = app.doJSON(t, http.MethodPost, "/api/v1/admin/sessions", "", map[string]string{"username": testOperator, "password": testPassword})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess sessionResponse
	require.NoError(t, json.Unmarshal(body, &sess))
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, testOperator, sess.Operator.Username)

	resp, body = app.doJSON(t, http.MethodGet, "/api/v1/admin/appointments", sess.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []appointmentResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	resp, body = app.doJSON(t, http.MethodPatch, "/api/v1/admin/appointments/1", sess.Token, map[string]string{"status": "Confirmed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated appointmentResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Confirmed", updated.Status)

	resp, _ = app.doJSON(t, http.MethodPatch, "/api/v1/admin/appointments/1", sess.Token, map[string]string{"status": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.doJSON(t, http.MethodDelete, "/api/v1/admin/appointments/1", sess.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = app.doJSON(t, http.MethodDelete, "/api/v1/admin/appointments/1", sess.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.doJSON(t, http.MethodDelete, "/api/v1/admin/sessions", sess.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = app.doJSON(t, http.MethodGet, "/api/v1/admin/appointments", sess.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))
	r.Header.Set("Authorization", "bearer abc.def")
	assert.Equal(t, "abc.def", bearerToken(r))
	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, bearerToken(r))
}
