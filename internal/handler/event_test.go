package handler_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-reservation/internal/handler"
	"github.com/iliyamo/event-seat-reservation/internal/model"
)

func TestCreateEventEndpoint(t *testing.T) {
	f := newFixture(t)
	h := handler.NewEventHandler(f.engine)

	rec := doJSON(t, h.Create, http.MethodPost, "/v1/admin/events",
		`{"title":"Encore","starts_at":"2026-10-01T19:00:00Z","total_seats":8}`, 0, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var ev model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.NotZero(t, ev.ID)
	assert.Equal(t, uint32(8), ev.TotalSeats)

	rec = doJSON(t, h.Create, http.MethodPost, "/v1/admin/events",
		`{"title":"","total_seats":8}`, 0, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEventsEndpoint(t *testing.T) {
	f := newFixture(t)
	h := handler.NewEventHandler(f.engine)

	rec := doJSON(t, h.List, http.MethodGet, "/v1/events", "", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Events []model.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 1)
}

func TestEventSeatsEndpoint(t *testing.T) {
	f := newFixture(t)
	h := handler.NewEventHandler(f.engine)

	rec := doJSON(t, h.Seats, http.MethodGet, "/v1/events/1/seats", "", 0,
		map[string]string{"id": strconv.FormatUint(f.eventID, 10)})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		EventID uint64       `json:"event_id"`
		Seats   []model.Seat `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Seats, 5)

	rec = doJSON(t, h.Seats, http.MethodGet, "/", "", 0, map[string]string{"id": "999"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
