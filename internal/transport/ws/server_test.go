package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/protocol"
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/tuning"
	"estateempire.io/internal/sim/worldgen"
)

type fakeGames struct {
	mu     sync.Mutex
	saved  []int
	loaded []int
}

func (f *fakeGames) savedSlots() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.saved...)
}

func (f *fakeGames) Save(_ context.Context, slot int) (slots.Meta, error) {
	if slot < 1 || slot > 3 {
		return slots.Meta{}, slots.ErrBadSlot
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, slot)
	return slots.Meta{Slot: slot, Day: 1}, nil
}

func (f *fakeGames) Load(_ context.Context, slot int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, slot)
	return slots.ErrEmptySlot
}

func (f *fakeGames) NewGame(context.Context, uint64) error { return nil }

func startServer(t *testing.T) (*engine.Driver, *fakeGames, string) {
	t.Helper()
	root := filepath.Join("..", "..", "..")
	cat, err := catalogs.Load(filepath.Join(root, "configs"), filepath.Join(root, "schemas"))
	require.NoError(t, err)
	eng := engine.New(tuning.Defaults(), cat)
	w := worldgen.New(eng.Tuning(), cat, rng.New(3))
	drv := engine.NewDriver(eng, w, engine.DriverConfig{TickInterval: time.Hour, Rand: rng.New(3)})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = drv.Run(ctx) }()

	games := &fakeGames{}
	srv := httptest.NewServer(NewServer(drv, games, 3, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return drv, games, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// readType skips messages until one of type typ arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		base, err := protocol.DecodeBase(msg)
		require.NoError(t, err)
		if base.Type == typ {
			require.NoError(t, json.Unmarshal(msg, v))
			return
		}
	}
}

func hello(t *testing.T, conn *websocket.Conn) (protocol.WelcomeMsg, protocol.StateMsg) {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"})
	var welcome protocol.WelcomeMsg
	readType(t, conn, protocol.TypeWelcome, &welcome)
	var st protocol.StateMsg
	readType(t, conn, protocol.TypeState, &st)
	return welcome, st
}

func TestHandshake_WelcomeThenState(t *testing.T) {
	drv, _, url := startServer(t)
	conn := dial(t, url)

	welcome, st := hello(t, conn)
	assert.NotEmpty(t, welcome.SessionID)
	assert.Equal(t, 3, welcome.SaveSlots)
	assert.Equal(t, drv.Engine().Catalogs().Digests(), welcome.Catalogs)
	assert.Equal(t, 1, st.Day)
	assert.Len(t, st.Properties, len(drv.Latest().Properties))
}

func TestHandshake_RejectsBadVersion(t *testing.T) {
	_, _, url := startServer(t)
	conn := dial(t, url)

	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
}

func TestAct_PurchaseAcksAndPushesState(t *testing.T) {
	drv, _, url := startServer(t)
	conn := dial(t, url)
	hello(t, conn)

	w := drv.Latest()
	var target string
	for _, p := range w.Properties {
		if w.DistrictUnlocked(p.District) && p.PurchaseCost <= w.Money {
			target = p.ID
			break
		}
	}
	require.NotEmpty(t, target)

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "a1", Kind: "PURCHASE", PropertyID: target})
	var ack protocol.AckMsg
	readType(t, conn, protocol.TypeAck, &ack)
	assert.Equal(t, "a1", ack.AckFor)
	assert.True(t, ack.Accepted)
	assert.Positive(t, ack.Cost)

	p, ok := drv.Latest().Property(target)
	require.True(t, ok)
	assert.True(t, p.Owned)

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "a2", Kind: "PURCHASE", PropertyID: target})
	readType(t, conn, protocol.TypeAck, &ack)
	assert.Equal(t, "a2", ack.AckFor)
	assert.False(t, ack.Accepted)
	assert.Equal(t, protocol.ErrRejected, ack.Code)
	assert.Equal(t, engine.ReasonAlreadyOwned, ack.Reason)

	var notice protocol.NoticeMsg
	readType(t, conn, protocol.TypeNotice, &notice)
	assert.NotEmpty(t, notice.ID)
}

func TestControl_MapsErrorsToCodes(t *testing.T) {
	drv, games, url := startServer(t)
	conn := dial(t, url)
	hello(t, conn)

	var ack protocol.AckMsg
	send(t, conn, protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, ID: "c1", Op: protocol.OpSave, Slot: 2})
	readType(t, conn, protocol.TypeAck, &ack)
	assert.True(t, ack.Accepted)
	assert.Equal(t, []int{2}, games.savedSlots())

	send(t, conn, protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, ID: "c2", Op: protocol.OpLoad, Slot: 1})
	readType(t, conn, protocol.TypeAck, &ack)
	assert.False(t, ack.Accepted)
	assert.Equal(t, protocol.ErrEmptySlot, ack.Code)

	send(t, conn, protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, ID: "c3", Op: protocol.OpSave, Slot: 9})
	readType(t, conn, protocol.TypeAck, &ack)
	assert.Equal(t, protocol.ErrBadSlot, ack.Code)

	send(t, conn, protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, ID: "c4", Op: "REWIND"})
	readType(t, conn, protocol.TypeAck, &ack)
	assert.Equal(t, protocol.ErrBadRequest, ack.Code)

	send(t, conn, protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, ID: "c5", Op: protocol.OpModal, Open: true})
	readType(t, conn, protocol.TypeAck, &ack)
	assert.True(t, ack.Accepted)
	assert.True(t, drv.Metrics().ModalOpen)
}
