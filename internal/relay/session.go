package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/pongrelay/internal/model"
)

// wsSession is one websocket connection. The read pump feeds the dispatcher;
// the write pump drains the send channel and keeps the connection alive with
// protocol-level pings.
type wsSession struct {
	id     model.SessionID
	conn   *websocket.Conn
	send   chan model.Envelope
	done   chan struct{}
	once   sync.Once
	hub    *Hub
	logger *slog.Logger
}

var _ Sender = (*wsSession)(nil)

// ID returns the ephemeral session identifier
func (s *wsSession) ID() model.SessionID {
	return s.id
}

// Send queues an envelope for delivery. A session whose buffer is full is
// dropped rather than allowed to stall the dispatcher.
func (s *wsSession) Send(env model.Envelope) {
	select {
	case s.send <- env:
	case <-s.done:
	default:
		s.logger.Warn("send buffer full, closing slow session")
		s.close()
	}
}

func (s *wsSession) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *wsSession) readPump() {
	defer func() {
		s.close()
		_ = s.conn.Close()
		s.hub.dispatcher.Disconnect(s)
		s.logger.Info("session disconnected")
	}()

	s.conn.SetReadLimit(s.hub.config.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.hub.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.config.ReadTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// A malformed frame is dropped, never fatal to the server
			s.logger.Debug("dropping malformed frame", slog.String("error", err.Error()))
			continue
		}

		s.hub.dispatcher.Deliver(s, env)
		_ = s.conn.SetReadDeadline(time.Now().Add(s.hub.config.ReadTimeout))
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(s.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.close()
		_ = s.conn.Close()
	}()

	for {
		select {
		case env := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
			if err := s.conn.WriteJSON(env); err != nil {
				s.logger.Debug("write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
