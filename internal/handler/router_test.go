package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"santorini/internal/app/relay"
	"santorini/internal/app/session"
	"santorini/internal/configs"
	"santorini/internal/pkg/errs"
)

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:     "development",
		Port:            4000,
		MaxMessageBytes: 8192,
		EventRate:       100,
		EventBurst:      100,
		ConnectRate:     100,
		ConnectBurst:    100,
	}
}

func newTestServer(t *testing.T, cfg *configs.AppConfig) (*httptest.Server, *relay.Hub) {
	t.Helper()

	hub := relay.NewHub(session.NewStore(), relay.HubConfig{})
	router, stop := Router(&AppDeps{Hub: hub, Config: cfg})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		hub.Shutdown()
		stop()
	})

	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	expectFrame(t, conn, relay.EventMessage)
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) (wsFrame, error) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	var f wsFrame
	err := conn.ReadJSON(&f)
	return f, err
}

func expectFrame(t *testing.T, conn *websocket.Conn, event string) wsFrame {
	t.Helper()

	f, err := readFrame(t, conn, 2*time.Second)
	if err != nil {
		t.Fatalf("expected %s frame: %v", event, err)
	}
	if f.Event != event {
		t.Fatalf("expected %s frame, got %s (%s)", event, f.Event, f.Data)
	}
	return f
}

func expectChat(t *testing.T, conn *websocket.Conn, name, text string) {
	t.Helper()

	f := expectFrame(t, conn, relay.EventMessage)

	var msg relay.ChatMessage
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if msg.Name != name || msg.Text != text {
		t.Fatalf("expected chat %s: %q, got %+v", name, text, msg)
	}
	if msg.Time == "" {
		t.Error("expected chat timestamp")
	}
}

func getJSON(t *testing.T, url string) (int, apiResponse) {
	t.Helper()

	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return res.StatusCode, body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	status, body := getJSON(t, srv.URL+"/health")
	if status != http.StatusOK || body.Code != 0 {
		t.Fatalf("unexpected health response %d %+v", status, body)
	}

	var data map[string]any
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["status"] != "ok" || data["service"] != ServiceName {
		t.Errorf("unexpected health data %v", data)
	}
}

func TestNewRoomCode(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	res, err := http.Post(srv.URL+"/api/rooms", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var data map[string]string
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data["roomId"]) != 6 {
		t.Errorf("expected 6-character room id, got %q", data["roomId"])
	}
}

func TestGameSession(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	alice := dial(t, srv)
	bob := dial(t, srv)

	emit(t, alice, relay.EventCreateRoom, map[string]string{"name": "Alice", "roomId": "R1", "type": "X"})
	expectChat(t, alice, relay.AdminName, "Alice, your room id is: R1")

	emit(t, bob, relay.EventEnterRoom, map[string]any{"name": "Bob", "roomId": "R1", "type": nil})

	slot := expectFrame(t, bob, relay.EventUpdatePlayer)
	if string(slot.Data) != `"Y"` {
		t.Errorf("expected slot Y, got %s", slot.Data)
	}

	roster := expectFrame(t, bob, relay.EventGetUsersInRoom)
	var users []map[string]string
	if err := json.Unmarshal(roster.Data, &users); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(users) != 1 || users[0]["name"] != "Alice" {
		t.Errorf("expected roster with Alice, got %v", users)
	}

	joined := expectFrame(t, alice, relay.EventUserJoined)
	var notice relay.UserJoinedPayload
	if err := json.Unmarshal(joined.Data, &notice); err != nil {
		t.Fatalf("decode join notice: %v", err)
	}
	if notice.Name != "Bob" || notice.Type != "Y" || notice.RoomID != "R1" {
		t.Errorf("unexpected join notice %+v", notice)
	}

	t.Run("status endpoint lists members", func(t *testing.T) {
		_, body := getJSON(t, srv.URL+"/api/rooms/R1")

		var status RoomStatus
		if err := json.Unmarshal(body.Data, &status); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !status.Exists || len(status.Users) != 2 || status.HasBoard {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("start game seeds board for others", func(t *testing.T) {
		emit(t, alice, relay.EventStartGame, nil)
		expectFrame(t, bob, relay.EventStartGame)

		emit(t, bob, relay.EventGetBoardState, nil)
		f := expectFrame(t, bob, relay.EventGetBoardState)

		var bs session.BoardState
		if err := json.Unmarshal(f.Data, &bs); err != nil {
			t.Fatalf("decode board: %v", err)
		}
		if bs.BoardState != relay.StartingBoard || bs.RoomID != "R1" {
			t.Errorf("unexpected board %+v", bs)
		}
	})

	t.Run("turns go to others only", func(t *testing.T) {
		emit(t, alice, relay.EventTakeTurn, "move1")

		f := expectFrame(t, bob, relay.EventTakeTurn)
		if string(f.Data) != `"move1"` {
			t.Errorf("expected move1, got %s", f.Data)
		}

		// The sender's next frame is its own query, not an echo of the turn.
		emit(t, alice, relay.EventGetBoardState, nil)
		expectFrame(t, alice, relay.EventGetBoardState)
	})

	t.Run("board writes replace", func(t *testing.T) {
		emit(t, bob, relay.EventBoardState, map[string]string{"roomId": "R1", "boardState": "after-move"})

		// Bob's own query is ordered after his write.
		emit(t, bob, relay.EventGetBoardState, nil)
		expectFrame(t, bob, relay.EventGetBoardState)

		emit(t, alice, relay.EventGetBoardState, nil)

		f := expectFrame(t, alice, relay.EventGetBoardState)
		var bs session.BoardState
		if err := json.Unmarshal(f.Data, &bs); err != nil {
			t.Fatalf("decode board: %v", err)
		}
		if bs.BoardState != "after-move" {
			t.Errorf("expected latest board, got %q", bs.BoardState)
		}
	})

	t.Run("chat reaches everyone", func(t *testing.T) {
		emit(t, bob, relay.EventMessage, "gg")

		expectChat(t, alice, "Bob", "gg")
		expectChat(t, bob, "Bob", "gg")
	})

	t.Run("departure is announced", func(t *testing.T) {
		if err := alice.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		expectChat(t, bob, relay.AdminName, "Alice has left the room")

		_, body := getJSON(t, srv.URL+"/api/rooms/R1")
		var status RoomStatus
		if err := json.Unmarshal(body.Data, &status); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(status.Users) != 1 || status.Users[0].Name != "Bob" {
			t.Errorf("expected only Bob left, got %+v", status.Users)
		}
	})
}

func TestEnterMissingRoom(t *testing.T) {
	srv, hub := newTestServer(t, testConfig())

	carol := dial(t, srv)
	emit(t, carol, relay.EventEnterRoom, map[string]string{"name": "Carol", "roomId": "R2"})

	expectChat(t, carol, relay.AdminName, "Room R2 does not exist. Please refresh and enter a valid room")

	if stats := hub.Store().Stats(); stats.Users != 0 {
		t.Errorf("expected nobody registered, got %+v", stats)
	}
}

func TestInvalidFrameKeepsConnection(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := expectFrame(t, conn, relay.EventError)
	var advisory errs.CustomError
	if err := json.Unmarshal(f.Data, &advisory); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if advisory.Code != errs.ErrInvalidJSONFormat {
		t.Errorf("expected invalid JSON code, got %d", advisory.Code)
	}

	emit(t, conn, relay.EventCreateRoom, map[string]string{"name": "Alice", "roomId": "R1", "type": "X"})
	expectChat(t, conn, relay.AdminName, "Alice, your room id is: R1")
}

func TestEventRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.EventRate = 0.001
	cfg.EventBurst = 1

	srv, _ := newTestServer(t, cfg)
	conn := dial(t, srv)

	emit(t, conn, relay.EventGetBoardState, nil)
	expectFrame(t, conn, relay.EventGetBoardState)

	emit(t, conn, relay.EventGetBoardState, nil)
	f := expectFrame(t, conn, relay.EventError)

	var advisory errs.CustomError
	if err := json.Unmarshal(f.Data, &advisory); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if advisory.Code != errs.ErrRateLimitExceeded {
		t.Errorf("expected rate limit code, got %d", advisory.Code)
	}
}

func TestConnectRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectRate = 0.001
	cfg.ConnectBurst = 1

	srv, _ := newTestServer(t, cfg)
	dial(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected second connection to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", resp)
	}
	resp.Body.Close()
}

func TestOriginCheckInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "production"
	cfg.AllowedOrigins = []string{"https://game.example"}

	srv, _ := newTestServer(t, cfg)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatal("expected foreign origin to be rejected")
	} else if resp != nil {
		resp.Body.Close()
	}

	header.Set("Origin", "https://game.example")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("expected allowed origin to connect: %v", err)
	}
	resp.Body.Close()
	conn.Close()
}
