package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/pkg/config"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.UpstreamConfig{BaseURL: server.URL, Timeout: time.Second}, nil)
}

func wireEquipment(id string, statusCode int) wireRequest {
	return wireRequest{
		ID:            id,
		RequesterID:   "inst-1",
		RequesterName: "Ada Brook",
		ResourceRefs:  []string{"cam-1"},
		ResourceName:  "Camera",
		Quantity:      1,
		Category:      "GENERAL",
		StartDate:     "2025-01-10T08:00",
		EndDate:       "2025-01-10T12:00",
		Environment:   "Lab 3",
		TicketNumber:  "T-100",
		StatusCode:    statusCode,
		CreatedAt:     "2025-01-05T09:30:00",
	}
}

func TestClientListDecodesCollection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/requests", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]wireRequest{
			wireEquipment("req-1", 1),
			wireEquipment("req-2", 2),
		})
	})

	requests, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	require.Equal(t, models.StatusPending, requests[0].Status)
	require.Equal(t, models.StatusApproved, requests[1].Status)
	require.Equal(t, models.KindEquipment, requests[0].Kind)
	require.Equal(t, "2025-01-10T08:00:00", requests[0].Window.Start.String())
}

func TestClientListSkipsUndecodableRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		bad := wireEquipment("req-bad", 9)
		worse := wireEquipment("req-worse", 1)
		worse.StartDate = "not-a-date"
		_ = json.NewEncoder(w).Encode([]wireRequest{
			wireEquipment("req-ok", 1),
			bad,
			worse,
		})
	})

	requests, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, "req-ok", requests[0].ID)
}

func TestClientListDecodesSpaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		space := wireRequest{
			ID:           "req-sp",
			RequesterID:  "inst-1",
			SpaceID:      "room-1",
			SpaceName:    "Studio B",
			StartDate:    "2025-01-10T08:00",
			EndDate:      "2025-01-10T12:00",
			Environment:  "Campus",
			TicketNumber: "T-200",
			StatusCode:   1,
			CreatedAt:    "2025-01-05",
		}
		_ = json.NewEncoder(w).Encode([]wireRequest{space})
	})

	requests, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, models.KindSpace, requests[0].Kind)
	require.Equal(t, "room-1", requests[0].SpaceID)
	require.Empty(t, requests[0].ResourceRefs)
}

func TestClientCreateEncodesDraft(t *testing.T) {
	var received wireDraft
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/requests", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		created := wireEquipment("req-new", 1)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(created)
	})

	start, _ := models.ParseLocalTime("2025-01-10T08:00")
	end, _ := models.ParseLocalTime("2025-01-10T12:00")
	created, err := client.Create(context.Background(), models.Draft{
		RequesterID:   "inst-1",
		RequesterName: "Ada Brook",
		Kind:          models.KindEquipment,
		ResourceRefs:  []string{"cam-1"},
		ResourceName:  "Camera",
		Quantity:      1,
		Category:      models.CategoryGeneral,
		Window:        models.Window{Start: start, End: end},
		Environment:   "Lab 3",
		TicketNumber:  "T-100",
	})
	require.NoError(t, err)
	require.Equal(t, "req-new", created.ID)
	require.Equal(t, models.StatusPending, created.Status)

	require.Equal(t, "inst-1", received.RequesterID)
	require.Equal(t, "2025-01-10T08:00:00", received.StartDate)
	require.Equal(t, "GENERAL", received.Category)
	require.Empty(t, received.SpaceID)
}

func TestClientUpdateStatusSendsWireCode(t *testing.T) {
	var patch wireStatusPatch
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/requests/req-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		_ = json.NewEncoder(w).Encode(wireEquipment("req-1", patch.StatusCode))
	})

	updated, err := client.UpdateStatus(context.Background(), "req-1", models.StatusApproved)
	require.NoError(t, err)
	require.Equal(t, 2, patch.StatusCode)
	require.Equal(t, models.StatusApproved, updated.Status)
}

func TestClientUpdateStatusNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.UpdateStatus(context.Background(), "missing", models.StatusApproved)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestClientSurfacesBackendErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := client.List(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}
