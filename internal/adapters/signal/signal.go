package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/ghostchat/internal/app/orch"
	"github.com/dkeye/ghostchat/internal/core"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Authenticator turns a credential into an identity without side effects.
type Authenticator interface {
	Verify(token string) (domain.User, error)
}

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	// CheckOrigin overrides the upgrader's same-origin check when set.
	CheckOrigin func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

type SignalWSController struct {
	Orch *orch.Orchestrator
	Auth Authenticator
	Opts Options

	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, auth Authenticator, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	return &SignalWSController{
		Orch:     o,
		Auth:     auth,
		Opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
	}
}

// WsSignalConn is the core.SignalConnection over one websocket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal authenticates token before upgrading. An unauthenticated
// request never reaches the presence registry.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, token string) {
	user, err := ctl.Auth.Verify(token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("ip", c.ClientIP()).Msg("ws auth failed")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("user_id", string(user.ID)).Str("username", user.Username).Msg("new WS connection")

	conn := newWsSignalConn(ws, ctl.Opts.SendBuffer)
	sess := core.NewMemberSession(&user, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}
