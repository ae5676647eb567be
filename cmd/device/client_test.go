package device

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/markusressel/vent2go/internal/api"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAction(t *testing.T) {
	// GIVEN
	var received api.ActionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/device/fan/action/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)

		_ = json.NewEncoder(w).Encode(controller.State{
			Id:     "fan",
			Device: device.Snapshot{Target: 3, Action: device.ActionSet},
		})
	}))
	defer server.Close()
	level := 3

	// WHEN
	state, err := NewClient(server.URL+"/").Action("fan", "set", &level)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "set", received.Action)
	require.NotNil(t, received.Level)
	assert.Equal(t, 3, *received.Level)
	assert.Equal(t, 3, state.Device.Target)
}

func TestClientErrorResponse(t *testing.T) {
	// GIVEN
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(api.Result{Name: "Invalid command", Message: "action not available"})
	}))
	defer server.Close()

	// WHEN
	_, err := NewClient(server.URL).SetMode("fan", "auto")

	// THEN
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "Invalid command", apiErr.Result.Name)
	assert.Contains(t, err.Error(), "action not available")
}

func TestClientHistory(t *testing.T) {
	// GIVEN
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/device/fan/history/", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]persistence.CommandRecord{
			{Origin: "rest", Action: "up", Target: 1},
		})
	}))
	defer server.Close()

	// WHEN
	records, err := NewClient(server.URL).History("fan", 5)

	// THEN
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "up", records[0].Action)
}

func TestClientUnreachable(t *testing.T) {
	// GIVEN
	server := httptest.NewServer(http.NotFoundHandler())
	serverUrl := server.URL
	server.Close()

	// WHEN
	_, err := NewClient(serverUrl).GetDevices()

	// THEN
	assert.ErrorContains(t, err, "unable to reach vent2go API")
}
