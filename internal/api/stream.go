package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/leonid6372/upbit-paper/internal/catalog"
	"github.com/leonid6372/upbit-paper/internal/ticker"
	"github.com/leonid6372/upbit-paper/internal/traderrs"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"go.uber.org/zap"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	catalogTimeout = 5 * time.Second

	commandSubscribe   = "subscribe"
	commandUnsubscribe = "unsubscribe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type streamCommand struct {
	Command string   `json:"command"`
	Codes   []string `json:"codes"`
}

type streamFrame struct {
	tickersResponse

	// Rejected lists the codes of the last subscribe command that are not listed upstream.
	Rejected []string `json:"rejected,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// streamNotice is the outcome of a command, sent once with the next frame.
type streamNotice struct {
	rejected []string
	err      string
}

// streamClient is one websocket connection. It is a registry subscriber in its own right:
// its codes count towards the effective set for as long as the socket is open.
type streamClient struct {
	registry *ticker.Registry
	catalog  *catalog.Catalog
	conn     *websocket.Conn
	handle   ticker.Handle

	mu         sync.Mutex
	codes      []string
	subscribed bool
	notice     *streamNotice

	// wake is signalled when the codes change
	wake chan struct{}
	done chan struct{}
}

func (s *Server) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := &streamClient{
		registry: s.registry,
		catalog:  s.catalog,
		conn:     conn,
		handle:   ticker.NewHandle("ws"),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	log.Debug("stream client connected", zap.String("handle", string(client.handle)))

	go client.writePump()
	go client.readPump()
}

func (sc *streamClient) readPump() {
	defer func() {
		sc.registry.Unsubscribe(sc.handle)
		close(sc.done)
		sc.conn.Close()

		log.Debug("stream client disconnected", zap.String("handle", string(sc.handle)))
	}()

	sc.conn.SetReadLimit(maxMessageSize)
	_ = sc.conn.SetReadDeadline(time.Now().Add(pongWait))
	sc.conn.SetPongHandler(func(string) error {
		return sc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := sc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("stream read failed", zap.String("handle", string(sc.handle)), zap.Error(err))
			}

			return
		}

		var cmd streamCommand
		if err := sonic.Unmarshal(message, &cmd); err != nil {
			log.Debug("malformed stream command", zap.String("handle", string(sc.handle)), zap.Error(err))
			continue
		}

		sc.handleCommand(cmd)
	}
}

func (sc *streamClient) handleCommand(cmd streamCommand) {
	switch cmd.Command {
	case commandSubscribe:
		sc.subscribe(splitCodes(strings.Join(cmd.Codes, ",")))
	case commandUnsubscribe:
		sc.mu.Lock()
		sc.codes = nil
		sc.subscribed = false
		sc.mu.Unlock()

		sc.registry.Unsubscribe(sc.handle)
	default:
		return
	}

	select {
	case sc.wake <- struct{}{}:
	default:
	}
}

// subscribe replaces the client's codes with the listed ones among codes. When the listing is
// unavailable the previous subscription stays and the client is told so.
func (sc *streamClient) subscribe(codes []string) {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	known, unknown, err := sc.catalog.Split(ctx, codes)
	if err != nil {
		log.Warn("failed to check stream codes", zap.String("handle", string(sc.handle)), zap.Error(err))

		sc.mu.Lock()
		sc.notice = &streamNotice{err: traderrs.Name(err)}
		sc.mu.Unlock()

		return
	}

	sc.registry.Subscribe(sc.handle, known)

	sc.mu.Lock()
	sc.codes = known
	sc.subscribed = true
	if len(unknown) > 0 {
		sc.notice = &streamNotice{rejected: unknown}
	}
	sc.mu.Unlock()
}

func (sc *streamClient) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		sc.conn.Close()
	}()

	cache := sc.registry.Cache()
	dirty := false

	for {
		// take the channel before reading the cache so no change slips between the two
		changed := cache.Changed()

		if dirty {
			dirty = false

			if err := sc.writeFrame(cache); err != nil {
				log.Debug("stream write failed", zap.String("handle", string(sc.handle)), zap.Error(err))
				return
			}
		}

		select {
		case <-changed:
			dirty = true
		case <-sc.wake:
			dirty = true
		case <-ping.C:
			_ = sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sc.done:
			_ = sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = sc.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (sc *streamClient) writeFrame(cache *ticker.Cache) error {
	sc.mu.Lock()
	codes, subscribed, notice := sc.codes, sc.subscribed, sc.notice
	sc.notice = nil
	sc.mu.Unlock()

	if !subscribed && notice == nil {
		return nil
	}

	frame := streamFrame{tickersResponse: tickersResponse{
		Status:    cache.Status(),
		UpdatedAt: updatedAt(cache),
		Tickers:   cache.Select(codes),
	}}

	if notice != nil {
		frame.Rejected = notice.rejected
		frame.Error = notice.err
	}

	payload, err := sonic.Marshal(frame)
	if err != nil {
		return err
	}

	_ = sc.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return sc.conn.WriteMessage(websocket.TextMessage, payload)
}
