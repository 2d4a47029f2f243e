package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clickwar/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func dial(t *testing.T, h *Hub, onMessage func(Message)) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn, nil, onMessage)
	}))
	t.Cleanup(srv.Close)

	before := h.Count()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() == before {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestPublishReachesEveryClient(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := dial(t, h, nil)
	b := dial(t, h, nil)

	h.Publish(domain.Event{Type: domain.EventMissileAttack, Data: domain.MissileAttackData{Attacker: "JP", Target: "BR", Damage: 100}})
	h.Publish(domain.Event{Type: domain.EventRankingUpdate, Data: domain.RankingUpdateData{}})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for _, want := range []string{domain.EventMissileAttack, domain.EventRankingUpdate} {
			var evt struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			}
			if err := conn.ReadJSON(&evt); err != nil {
				t.Fatalf("read: %v", err)
			}
			if evt.Type != want {
				t.Fatalf("expected %s in order, got %s", want, evt.Type)
			}
		}
	}
}

func TestInboundMessagesAreDelivered(t *testing.T) {
	h := NewHub(zerolog.Nop())
	got := make(chan Message, 1)
	conn := dial(t, h, func(m Message) { got <- m })

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	conn.WriteJSON(Message{Type: "requestRankings"})

	select {
	case m := <-got:
		if m.Type != "requestRankings" {
			t.Fatalf("unexpected message %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never arrived")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	h := NewHub(zerolog.Nop())
	conn := dial(t, h, nil)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed client still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.Publish(domain.Event{Type: domain.EventBoost})
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub(zerolog.Nop())
	slow := &client{id: "slow", send: make(chan []byte, 1)}
	fast := &client{id: "fast", send: make(chan []byte, 4)}
	h.add(slow)
	h.add(fast)

	h.Publish(domain.Event{Type: domain.EventBoost})
	h.Publish(domain.Event{Type: domain.EventBoost})

	if h.Count() != 1 {
		t.Fatalf("expected slow client dropped, %d left", h.Count())
	}
	if len(fast.send) != 2 {
		t.Fatalf("fast client should keep both events, got %d", len(fast.send))
	}
	h.Close()
	if h.Count() != 0 {
		t.Fatal("close must clear clients")
	}
}
