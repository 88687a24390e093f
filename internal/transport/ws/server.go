package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/persistence/snapshot"
	"estateempire.io/internal/protocol"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/state"
)

// Games handles CONTROL operations that replace or persist the whole game.
type Games interface {
	Save(ctx context.Context, slot int) (slots.Meta, error)
	Load(ctx context.Context, slot int) error
	NewGame(ctx context.Context, seed uint64) error
}

type Server struct {
	drv       *engine.Driver
	games     Games
	saveSlots int
	log       *log.Logger

	upgrader websocket.Upgrader
	sessions atomic.Int64
}

func NewServer(drv *engine.Driver, games Games, saveSlots int, logger *log.Logger) *Server {
	return &Server{
		drv:       drv,
		games:     games,
		saveSlots: saveSlots,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions is the number of connected clients.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Subscribe before the handshake STATE so no publish falls in between.
		updates, unsubscribe := s.drv.Subscribe()
		defer unsubscribe()

		sessionID, maxQ, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)
		s.printf("ws session=%s connected", sessionID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, maxQ)

		// Writer goroutine. Closing the conn unblocks the reader.
		go func() {
			defer func() {
				cancel()
				_ = conn.Close()
			}()
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					if err := writeRaw(conn, b); err != nil {
						return
					}
				case u, ok := <-updates:
					if !ok {
						return
					}
					if err := writeUpdate(conn, u); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			ack, ok := s.handle(ctx, msg)
			if !ok {
				continue
			}
			b, err := json.Marshal(ack)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		s.printf("ws session=%s closed", sessionID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, maxQ int, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", 0, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", 0, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return "", 0, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", 0, false
	}

	maxQ = hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 16
	}
	if maxQ > 64 {
		maxQ = 64
	}

	eng := s.drv.Engine()
	sessionID = uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		TickIntervalMs:  eng.Tuning().TickIntervalMs,
		SaveSlots:       s.saveSlots,
		Catalogs:        eng.Catalogs().Digests(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", 0, false
	}
	w := s.drv.Latest()
	m := s.drv.Metrics()
	if err := writeJSON(conn, protocol.NewStateMsg(w, eng.DailyCashFlow(w), m.ModalOpen)); err != nil {
		return "", 0, false
	}
	return sessionID, maxQ, true
}

// handle turns one client message into its ACK. ok is false for messages
// that are ignored without a reply.
func (s *Server) handle(ctx context.Context, msg []byte) (protocol.AckMsg, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.AckMsg{}, false
	}
	switch base.Type {
	case protocol.TypeAct:
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil {
			return s.nack("", protocol.ErrProtoBadRequest, err.Error()), true
		}
		if act.ProtocolVersion != protocol.Version {
			return s.nack(act.ID, protocol.ErrProtoBadRequest, "bad protocol_version"), true
		}
		return s.act(ctx, act), true

	case protocol.TypeControl:
		var c protocol.ControlMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			return s.nack("", protocol.ErrProtoBadRequest, err.Error()), true
		}
		if c.ProtocolVersion != protocol.Version {
			return s.nack(c.ID, protocol.ErrProtoBadRequest, "bad protocol_version"), true
		}
		return s.control(ctx, c), true
	}
	return protocol.AckMsg{}, false
}

func (s *Server) act(ctx context.Context, m protocol.ActMsg) protocol.AckMsg {
	out, err := s.drv.Do(ctx, engine.Action{
		Kind:       engine.ActionKind(m.Kind),
		PropertyID: m.PropertyID,
		AmenityID:  m.AmenityID,
		Mode:       state.RentMode(m.Mode),
		Option:     m.Option,
		TimeScale:  m.TimeScale,
	})
	if err != nil {
		return s.nack(m.ID, codeFor(err), err.Error())
	}
	ack := s.ack(m.ID)
	ack.Accepted = out.Applied
	ack.Cost = out.Cost
	ack.XP = out.XP
	ack.LevelsGained = out.LevelsGained
	if !out.Applied {
		ack.Code = protocol.ErrRejected
		ack.Reason = out.Reason
	}
	return ack
}

func (s *Server) control(ctx context.Context, c protocol.ControlMsg) protocol.AckMsg {
	var err error
	switch c.Op {
	case protocol.OpSave:
		var meta slots.Meta
		if meta, err = s.games.Save(ctx, c.Slot); err == nil {
			s.printf("ws save slot=%d day=%d", meta.Slot, meta.Day)
		}
	case protocol.OpLoad:
		err = s.games.Load(ctx, c.Slot)
	case protocol.OpNewGame:
		err = s.games.NewGame(ctx, c.Seed)
	case protocol.OpModal:
		err = s.drv.SetModalOpen(ctx, c.Open)
	default:
		return s.nack(c.ID, protocol.ErrBadRequest, "unknown op "+c.Op)
	}
	if err != nil {
		return s.nack(c.ID, codeFor(err), err.Error())
	}
	ack := s.ack(c.ID)
	ack.Accepted = true
	return ack
}

func (s *Server) ack(id string) protocol.AckMsg {
	day := 0
	if w := s.drv.Latest(); w != nil {
		day = w.Day
	}
	return protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: id, Day: day}
}

func (s *Server) nack(id, code, msg string) protocol.AckMsg {
	a := s.ack(id)
	a.Code = code
	a.Message = msg
	return a
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, slots.ErrEmptySlot):
		return protocol.ErrEmptySlot
	case errors.Is(err, slots.ErrBadSlot):
		return protocol.ErrBadSlot
	case errors.Is(err, snapshot.ErrCorrupt):
		return protocol.ErrCorruptSave
	case errors.Is(err, engine.ErrStopped), errors.Is(err, context.Canceled):
		return protocol.ErrStopped
	}
	return protocol.ErrInternal
}

func writeUpdate(conn *websocket.Conn, u engine.Update) error {
	if err := writeJSON(conn, protocol.NewStateMsg(u.World, u.CashFlow, u.ModalOpen)); err != nil {
		return err
	}
	for _, n := range u.Notices {
		if err := writeJSON(conn, protocol.NoticeMsg{
			Type:            protocol.TypeNotice,
			ProtocolVersion: protocol.Version,
			ID:              n.ID,
			Level:           string(n.Level),
			Title:           n.Title,
			Message:         n.Message,
			At:              n.At.UnixMilli(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(conn, b)
}

func writeRaw(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
