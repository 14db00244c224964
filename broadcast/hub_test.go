package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/events"
	"wingo/models"
	"wingo/service"
)

// newTestServer serves the hub, taking the account id from the account query parameter
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, _ := strconv.ParseInt(r.URL.Query().Get("account"), 10, 64)
		if err := hub.Serve(w, r, accountID); err != nil {
			t.Logf("serve failed: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, accountID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?account=" + strconv.FormatInt(accountID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitForConnections(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ConnectionCount() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastReachesEveryConnection(t *testing.T) {
	hub := NewHub(Config{})
	server := newTestServer(t, hub)

	first := dial(t, server, 1)
	second := dial(t, server, 2)
	waitForConnections(t, hub, 2)

	hub.Broadcast(service.EventTimerUpdate, map[string]int{"timer": 7})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, service.EventTimerUpdate, msg["type"])
		assert.Equal(t, float64(7), msg["payload"].(map[string]any)["timer"])
	}
}

func TestHub_SendToAccountIsTargeted(t *testing.T) {
	hub := NewHub(Config{})
	server := newTestServer(t, hub)

	mine := dial(t, server, 1)
	other := dial(t, server, 2)
	waitForConnections(t, hub, 2)

	hub.SendToAccount(1, service.EventPersonalUpdate, map[string]string{"kind": "win"})
	hub.Broadcast(service.EventNewResult, map[string]string{"result": "red"})

	assert.Equal(t, service.EventPersonalUpdate, readMessage(t, mine)["type"])
	assert.Equal(t, service.EventNewResult, readMessage(t, mine)["type"])
	// the other account only sees the broadcast
	assert.Equal(t, service.EventNewResult, readMessage(t, other)["type"])
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(Config{})
	server := newTestServer(t, hub)

	conn := dial(t, server, 1)
	waitForConnections(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForConnections(t, hub, 0)

	// sending to a departed account is a no-op
	hub.SendToAccount(1, service.EventPersonalUpdate, nil)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(Config{AllowedOrigins: []string{"https://play.example"}})
	server := newTestServer(t, hub)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?account=1"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, hub.ConnectionCount())
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(Config{SendBuffer: 1})
	slow := &client{hub: hub, accountID: 9, send: make(chan []byte, 1)}
	hub.register(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Broadcast(service.EventCrashMultiplier, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow connection")
	}

	assert.Len(t, slow.send, 1)
	var msg Message
	require.NoError(t, json.Unmarshal(<-slow.send, &msg))
	assert.Equal(t, float64(0), msg.Payload, "the oldest message is kept")

	hub.unregister(slow)
	hub.unregister(slow)
	assert.Zero(t, hub.ConnectionCount())
}

func TestHub_SubscribeToBus(t *testing.T) {
	hub := NewHub(Config{})
	server := newTestServer(t, hub)
	bus := events.NewBus()
	hub.SubscribeToBus(bus)

	conn := dial(t, server, 5)
	waitForConnections(t, hub, 1)

	bus.Emit(context.Background(), events.BalanceChangeEvent{
		AccountID:  5,
		NewBalance: decimal.RequireFromString("150.00"),
		Delta:      decimal.RequireFromString("100.00"),
		Kind:       models.EntryKindWin,
	})

	msg := readMessage(t, conn)
	assert.Equal(t, service.EventPersonalUpdate, msg["type"])
	payload := msg["payload"].(map[string]any)
	assert.Equal(t, "win", payload["kind"])
	assert.Equal(t, "150", payload["balance"])
}

func TestHub_PersonalUpdatesKeepLedgerOrder(t *testing.T) {
	hub := NewHub(Config{})
	server := newTestServer(t, hub)
	conn := dial(t, server, 9)
	waitForConnections(t, hub, 1)

	update := func(balance string) PersonalUpdate {
		return PersonalUpdate{Kind: string(models.EntryKindBet), Balance: decimal.RequireFromString(balance)}
	}

	hub.sendPersonal(9, 12, update("80"))
	hub.sendPersonal(9, 11, update("90"))
	hub.sendPersonal(9, 12, PersonalUpdate{Kind: "deposit_credited", Balance: decimal.RequireFromString("80")})
	hub.sendPersonal(9, 13, update("70"))

	var got []string
	for range 3 {
		payload := readMessage(t, conn)["payload"].(map[string]any)
		got = append(got, payload["kind"].(string)+":"+payload["balance"].(string)+":"+strconv.FormatFloat(payload["seq"].(float64), 'f', 0, 64))
	}
	assert.Equal(t, []string{"bet:80:12", "deposit_credited:80:12", "bet:70:13"}, got, "the older entry is dropped")
}

func TestHub_PersonalOrderForgetsDisconnectedAccounts(t *testing.T) {
	hub := NewHub(Config{})
	server := newTestServer(t, hub)

	hub.sendPersonal(4, 50, PersonalUpdate{Kind: "win"})
	hub.personal.mu.Lock()
	assert.NotContains(t, hub.personal.last, int64(4), "accounts without connections are not tracked")
	hub.personal.mu.Unlock()

	conn := dial(t, server, 4)
	waitForConnections(t, hub, 1)
	hub.sendPersonal(4, 50, PersonalUpdate{Kind: "win"})
	readMessage(t, conn)

	conn.Close()
	waitForConnections(t, hub, 0)

	hub.personal.mu.Lock()
	defer hub.personal.mu.Unlock()
	assert.NotContains(t, hub.personal.last, int64(4))
}
