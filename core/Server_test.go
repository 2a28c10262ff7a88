package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Env:          "test",
		HostIP:       "127.0.0.1",
		HostPort:     "0",
		TickInterval: 5 * time.Millisecond,
		WinningScore: 0,
		MessageBurst: 1,
	}
}

func startTestServer(t *testing.T, cfg *Config) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.registry.CloseAll()
		s.limiter.Stop()
		ts.Close()
	})
	return s, ts
}

func dialRoom(t *testing.T, ts *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg InboundMessage) {
	t.Helper()
	data, err := GenerateClientPayload(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readUntil 讀到指定 type 的訊息為止
func readUntil(t *testing.T, conn *websocket.Conn, typ string) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := ParseServerPayload(data)
		require.NoError(t, err)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestHealthReportsRoomCount(t *testing.T) {
	s, ts := startTestServer(t, testConfig())
	s.registry.GetOrCreate("a")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string `json:"status"`
		Rooms  int    `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Rooms)
}

func TestCreateGameReturnsKey(t *testing.T) {
	_, ts := startTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+"/create_game", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		GameKey string `json:"game_key"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_, err = uuid.Parse(body.GameKey)
	assert.NoError(t, err)

	resp2, err := http.Get(ts.URL + "/create_game")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestTwoPlayersPlayAMatch(t *testing.T) {
	s, ts := startTestServer(t, testConfig())
	p1 := dialRoom(t, ts, "match")
	p2 := dialRoom(t, ts, "match")

	sendMsg(t, p1, IdentifyPlayer{})
	assert.Equal(t, Player1, readUntil(t, p1, IdentifyPlayerHeader).Player)
	sendMsg(t, p2, IdentifyPlayer{})
	assert.Equal(t, Player2, readUntil(t, p2, IdentifyPlayerHeader).Player)

	sendMsg(t, p1, PlayerStatus{Player: Player1, IsReady: true})
	sendMsg(t, p2, PlayerStatus{Player: Player2, IsReady: true})
	require.Eventually(t, func() bool {
		room, ok := s.registry.Lookup("match")
		return ok && room.Status() == RoomStatusReady
	}, 3*time.Second, 10*time.Millisecond)

	sendMsg(t, p1, StartGame{})
	readUntil(t, p1, GameStartedHeader)
	readUntil(t, p2, GameStartedHeader)

	first := readUntil(t, p2, GameStateHeader)
	second := readUntil(t, p2, GameStateHeader)
	assert.NotEqual(t, first.Ball, second.Ball)

	p1.Close()
	p2.Close()
	require.Eventually(t, func() bool {
		return s.registry.Count() == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestThirdConnectionIsObserver(t *testing.T) {
	s, ts := startTestServer(t, testConfig())
	p1 := dialRoom(t, ts, "full")
	p2 := dialRoom(t, ts, "full")
	p3 := dialRoom(t, ts, "full")
	require.Eventually(t, func() bool {
		room, ok := s.registry.Lookup("full")
		return ok && room.ConnCount() == 3
	}, 3*time.Second, 10*time.Millisecond)

	sendMsg(t, p1, IdentifyPlayer{})
	readUntil(t, p1, IdentifyPlayerHeader)
	sendMsg(t, p2, IdentifyPlayer{})
	readUntil(t, p2, IdentifyPlayerHeader)

	// p3 在 p2 綁定時收到的廣播
	readUntil(t, p3, GameStateHeader)
	readUntil(t, p3, GameStateHeader)

	sendMsg(t, p3, IdentifyPlayer{})
	sendMsg(t, p1, PlayerStatus{Player: Player1, IsReady: true})

	// 沒有 identify 回覆，直接收到下一個廣播
	require.NoError(t, p3.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := p3.ReadMessage()
	require.NoError(t, err)
	msg, err := ParseServerPayload(data)
	require.NoError(t, err)
	assert.Equal(t, UpdatePlayersHeader, msg.Type)

	room, ok := s.registry.Lookup("full")
	require.True(t, ok)
	assert.Equal(t, 3, room.ConnCount())
}

func TestHandshakeRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HandshakeRate = 0.01
	_, ts := startTestServer(t, cfg)

	dialRoom(t, ts, "limited")

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/limited"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestClientIPIgnoresForwardedHeadersByDefault(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws/r", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	r.Header.Set("X-Real-IP", "5.6.7.8")

	assert.Equal(t, "10.0.0.7", clientIP(r, false))
	assert.Equal(t, "1.2.3.4", clientIP(r, true))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "5.6.7.8", clientIP(r, true))
}

func TestForwardedHeaderDoesNotBypassHandshakeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HandshakeRate = 0.01
	_, ts := startTestServer(t, cfg)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/spoof"

	first, _, err := websocket.DefaultDialer.Dial(u, http.Header{"X-Forwarded-For": {"1.1.1.1"}})
	require.NoError(t, err)
	t.Cleanup(func() { first.Close() })

	_, resp, err := websocket.DefaultDialer.Dial(u, http.Header{"X-Forwarded-For": {"2.2.2.2"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
