package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audittrail/internal/audit/models"
	"audittrail/internal/audit/service"
	"audittrail/internal/audit/store/memory"
)

const testAdminToken = "test-admin-token"

func newRouter(t *testing.T) (chi.Router, *service.AuditService) {
	t.Helper()
	svc := service.New(memory.NewInMemory())
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), testAdminToken)
	r := chi.NewRouter()
	h.Register(r)
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func adminHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

func createBody(service string) map[string]any {
	return map[string]any{
		"service": service,
		"action":  "CREATE",
		"message": "created a thing",
	}
}

func TestRecordEndpoint(t *testing.T) {
	t.Run("persists and returns the stored record", func(t *testing.T) {
		r, _ := newRouter(t)
		rec := doJSON(t, r, http.MethodPost, "/audit/events", createBody("USER"), nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		var event models.Event
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&event))
		assert.Positive(t, event.ID)
		assert.Equal(t, models.ServiceUser, event.Service)
		assert.Equal(t, models.LevelInfo, event.LogLevel)
		assert.True(t, event.Successful)
		assert.False(t, event.Timestamp.IsZero())
	})

	t.Run("rejects unknown service naming the field", func(t *testing.T) {
		r, _ := newRouter(t)
		rec := doJSON(t, r, http.MethodPost, "/audit/events", createBody("BOGUS"), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body struct {
			Error  string   `json:"error"`
			Fields []string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "validation_failed", body.Error)
		assert.Equal(t, []string{"service"}, body.Fields)

		// Nothing was persisted.
		list := doJSON(t, r, http.MethodGet, "/audit/events", nil, nil)
		var envelope struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.NewDecoder(list.Body).Decode(&envelope))
		assert.Zero(t, envelope.Count)
	})

	t.Run("rejects undecodable body", func(t *testing.T) {
		r, _ := newRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/audit/events", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListEndpoint(t *testing.T) {
	r, _ := newRouter(t)
	for _, svc := range []string{"USER", "STORAGE", "USER"} {
		rec := doJSON(t, r, http.MethodPost, "/audit/events", createBody(svc), nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("returns an envelope with count", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/audit/events", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Count  int            `json:"count"`
			Events []models.Event `json:"events"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
		assert.Equal(t, 3, envelope.Count)
		assert.Len(t, envelope.Events, 3)
	})

	t.Run("filters by service", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/audit/events?service=STORAGE", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
		assert.Equal(t, 1, envelope.Count)
	})

	t.Run("rejects bad pagination", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/audit/events?page=zero", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/audit/events?limit=5000", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("explicit zero is out of range, not the default", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/audit/events?page=0", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/audit/events?limit=0", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/audit/services/USER/events?limit=0", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty match is success", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/audit/events?service=ANALYTICS", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetByIDEndpoint(t *testing.T) {
	r, _ := newRouter(t)
	created := doJSON(t, r, http.MethodPost, "/audit/events", createBody("USER"), nil)
	var stored models.Event
	require.NoError(t, json.NewDecoder(created.Body).Decode(&stored))

	t.Run("returns the record", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/audit/events/%d", stored.ID), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("404 on miss", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/audit/events/99999", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 on non-numeric id", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/audit/events/abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListByServiceEndpoint(t *testing.T) {
	r, svc := newRouter(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	record := func(service string, ts time.Time) {
		_, err := svc.Record(context.Background(), &models.CreateEventRequest{
			Service:   service,
			Action:    "CREATE",
			Message:   "event",
			Timestamp: &ts,
		})
		require.NoError(t, err)
	}
	record("USER", base)
	record("STORAGE", base.Add(time.Second))
	record("USER", base.Add(2*time.Second))

	rec := doJSON(t, r, http.MethodGet, "/audit/services/USER/events", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Count  int            `json:"count"`
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, 2, envelope.Count)
	assert.True(t, envelope.Events[0].Timestamp.After(envelope.Events[1].Timestamp))
}

func TestListByEntityEndpoint(t *testing.T) {
	r, svc := newRouter(t)
	_, err := svc.Record(context.Background(), &models.CreateEventRequest{
		Service:  "USER",
		Action:   "UPDATE",
		Message:  "entity touched",
		EntityID: "e-7",
	})
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodGet, "/audit/entities/e-7/events", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, 1, envelope.Count)
}

func TestDeleteEndpointIsPrivileged(t *testing.T) {
	r, _ := newRouter(t)
	created := doJSON(t, r, http.MethodPost, "/audit/events", createBody("USER"), nil)
	var stored models.Event
	require.NoError(t, json.NewDecoder(created.Body).Decode(&stored))
	path := fmt.Sprintf("/audit/events/%d", stored.ID)

	t.Run("401 without token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("401 with wrong token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, path, nil,
			map[string]string{"Authorization": "Bearer wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deletes with token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, path, nil, adminHeader())
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodDelete, path, nil, adminHeader())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPruneEndpoint(t *testing.T) {
	t.Run("removes aged records and reports the count", func(t *testing.T) {
		r, svc := newRouter(t)
		old := time.Now().UTC().AddDate(0, 0, -40)
		_, err := svc.Record(context.Background(), &models.CreateEventRequest{
			Service:   "USER",
			Action:    "CREATE",
			Message:   "old event",
			Timestamp: &old,
		})
		require.NoError(t, err)

		rec := doJSON(t, r, http.MethodDelete, "/audit/retention?days=30", nil, adminHeader())
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]int64
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, int64(1), body["removed"])
	})

	t.Run("rejects missing or non-positive days", func(t *testing.T) {
		r, _ := newRouter(t)
		rec := doJSON(t, r, http.MethodDelete, "/audit/retention", nil, adminHeader())
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, r, http.MethodDelete, "/audit/retention?days=0", nil, adminHeader())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("401 without token", func(t *testing.T) {
		r, _ := newRouter(t)
		rec := doJSON(t, r, http.MethodDelete, "/audit/retention?days=30", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
