package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/MeshCall/internal/adapters/signal"
	"github.com/dkeye/MeshCall/internal/app"
	"github.com/dkeye/MeshCall/internal/config"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func newTestRouter(t *testing.T) (*signal.SignalWSController, http.Handler) {
	t.Helper()
	ctrl := signal.NewSignalWSController(app.NewRoomManager(), app.SimplePolicy{}, nil, signal.Options{})
	cfg := &config.Config{Mode: "test", Secret: "test-secret"}
	return ctrl, SetupRouter(context.Background(), cfg, ctrl)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestHealthzAndClientToken(t *testing.T) {
	_, h := newTestRouter(t)
	w := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" {
			found = true
			assert.NotEmpty(t, c.Value)
		}
	}
	assert.True(t, found, "client token cookie not set")
}

func TestRoomsEndpoints(t *testing.T) {
	ctrl, h := newTestRouter(t)

	w := get(t, h, "/api/rooms/standup/members")
	assert.Equal(t, http.StatusNotFound, w.Code)

	room := ctrl.Rooms.GetOrCreate("standup")
	require.NoError(t, room.AddMember(core.NewMemberSession(&domain.Member{
		Identity: domain.Identity{ID: "a", DisplayName: "Alice"},
	}, nopConn{})))

	w = get(t, h, "/api/rooms")
	require.Equal(t, http.StatusOK, w.Code)
	var rooms struct {
		Rooms []domain.RoomInfo `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, domain.RoomID("standup"), rooms.Rooms[0].ID)
	assert.Equal(t, 1, rooms.Rooms[0].MemberCount)

	w = get(t, h, "/api/rooms/standup/members")
	require.Equal(t, http.StatusOK, w.Code)
	var members struct {
		Members []core.MemberDTO `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	require.Len(t, members.Members, 1)
	assert.Equal(t, "Alice", members.Members[0].DisplayName)
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestRouter(t)
	w := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "meshcall_relay_rooms")
}
