// Package testutil provides testing utilities and helpers.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HammerMeetNail/pairup/internal/models"
)

// NewUser returns a user with a fresh ID.
func NewUser(username string) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Username:  username,
		CreatedAt: time.Now(),
	}
}

// NewMatch returns an active match between a and b stored in canonical order.
func NewMatch(a, b uuid.UUID) *models.Match {
	pair := models.NewPair(a, b)
	return &models.Match{
		ID:         uuid.New(),
		UserLowID:  pair.Low,
		UserHighID: pair.High,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
}

// NewJSONRequest creates a request whose body is data encoded as JSON.
func NewJSONRequest(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	require.NoError(t, err, "marshal request body")
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status. Body: %s", rr.Body.String())
}

// AssertErrorResponse checks for a JSON {"error": message} body with status.
func AssertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, rr.Code, "unexpected status. Body: %s", rr.Body.String())
	require.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json"),
		"expected JSON content type, got %q", rr.Header().Get("Content-Type"))

	var response struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response), "parse error body")
	require.Equal(t, message, response.Error)
}

// DecodeJSON decodes the recorder body into a value of type T.
func DecodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "parse response body: %s", rr.Body.String())
	return out
}
