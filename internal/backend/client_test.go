package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"aforo/internal/config"
	"aforo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(config.BackendConfig{BaseURL: ts.URL}, nil)
}

func TestListEvents(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode([]models.Event{{ID: "ev-1", Name: "Concierto"}})
	}))

	events, err := client.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)
}

func TestListEventsEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))

	events, err := client.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNonOKBecomesAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Reserva no encontrada"}`, http.StatusNotFound)
	}))

	_, err := client.GetReservation(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Reserva no encontrada")
}

func TestErrorBodyNeverDecodedAsData(t *testing.T) {
	// A 500 carrying a JSON body must not be mistaken for an event list.
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`[{"_id":"fake"}]`))
	}))

	events, err := client.ListEvents(context.Background())
	assert.Error(t, err)
	assert.Nil(t, events)
}

func TestCreateReservation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/reservations", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ev-1", body["eventId"])
		assert.Equal(t, "u-1", body["userId"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Reservation{ID: "res-1", EventID: "ev-1", UserID: "u-1", Status: models.ReservationPending})
	}))

	res, err := client.CreateReservation(context.Background(), "ev-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "res-1", res.ID)
	assert.Equal(t, models.ReservationPending, res.Status)
}

func TestCheckInSurfacesAnomalyFlag(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reservations/res-1/checkin", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"completed","previous_anomaly_checkins":true}`))
	}))

	result, err := client.CheckIn(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckinCompleted, result.Status)
	assert.True(t, result.PreviousAnomalyCheckins)
}

func TestReportTrouble(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reservations/res-1/checkin/trouble", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "trouble", body["status"])

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	assert.NoError(t, client.ReportTrouble(context.Background(), "res-1"))
}

func TestRegisterUser(t *testing.T) {
	form := models.RegistrationForm{Name: "Ana", Email: "ana@example.com", Phone: "+34600000000", BirthDate: "1990-01-01", Gender: "female"}

	t.Run("BooleanTrue", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/", r.URL.Path)
			_, _ = w.Write([]byte("true"))
		}))

		result, err := client.RegisterUser(context.Background(), form)
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Empty(t, result.InvalidFields())
	})

	t.Run("FieldValidityMap", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"name":true,"email":false,"phone":false}`))
		}))

		result, err := client.RegisterUser(context.Background(), form)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.ElementsMatch(t, []string{"email", "phone"}, result.InvalidFields())
	})

	t.Run("CreatedEntity", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"u-new"}`))
		}))

		result, err := client.RegisterUser(context.Background(), form)
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Equal(t, "u-new", result.UserID)
	})
}

func TestReviewsAnalysis(t *testing.T) {
	t.Run("JSONString", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/businesses/reviews_analysys/biz-1", r.URL.Path)
			assert.Equal(t, "comida", r.URL.Query().Get("category"))
			_ = json.NewEncoder(w).Encode("## Resumen\nBuena acogida.")
		}))

		text, err := client.ReviewsAnalysis(context.Background(), "biz-1", "comida")
		require.NoError(t, err)
		assert.Contains(t, text, "Resumen")
	})

	t.Run("RawText", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("plain analysis"))
		}))

		text, err := client.ReviewsAnalysis(context.Background(), "biz-1", "comida")
		require.NoError(t, err)
		assert.Equal(t, "plain analysis", text)
	})
}

func TestTransportFailure(t *testing.T) {
	// Point at a closed server to force a connection error.
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := New(config.BackendConfig{BaseURL: url}, nil)
	_, err := client.ListEvents(context.Background())
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}
