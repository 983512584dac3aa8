// Package httpserver exposes the node's local operator surface: liveness,
// Prometheus metrics, and a websocket relay of the EventBus for a UI layer
// to attach to.
package httpserver

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gorilla/websocket"

	"github.com/zkproof-network/prover-node/internal/events"
	"github.com/zkproof-network/prover-node/internal/metrics"
)

// replayWindow bounds how long a recently-published event stays available
// to a websocket client that connects just after it was emitted.
const replayWindow = 2 * time.Minute

// Server is the node's local HTTP surface: /healthz, /metrics, and /events.
type Server struct {
	echo   *echo.Echo
	bus    *events.Bus
	replay *gocache.Cache

	mu  sync.Mutex
	seq uint64

	upgrader websocket.Upgrader
}

// Opts configures a new Server.
type Opts struct {
	Bus         *events.Bus
	CorsOrigins []string
}

// New builds a Server subscribed to bus, ready to Start.
func New(opts Opts) *Server {
	corsOrigins := opts.CorsOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}

	srv := &Server{
		echo:   echo.New(),
		bus:    opts.Bus,
		replay: gocache.New(replayWindow, replayWindow/2),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	srv.echo.HideBanner = true
	srv.configureMiddleware(corsOrigins)
	srv.configureRoutes()

	if opts.Bus != nil {
		go srv.recordEvents(opts.Bus)
	}
	return srv
}

// Start blocks serving on addr until the server is shut down.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler, letting Server be used directly with
// httptest or a custom listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) configureMiddleware(corsOrigins []string) {
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: logSkipper,
		Output:  os.Stdout,
	}))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{http.MethodGet, http.MethodHead},
	}))
}

func logSkipper(c echo.Context) bool {
	switch c.Request().URL.Path {
	case "/healthz", "/metrics":
		return true
	default:
		return false
	}
}

func (s *Server) configureRoutes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	s.echo.GET("/events", s.streamEvents)
}

func (s *Server) health(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// recordEvents keeps a short replay buffer of recently published events so a
// websocket client connecting moments after an event fired still sees it.
func (s *Server) recordEvents(bus *events.Bus) {
	sub := bus.Subscribe()
	defer sub.Close()
	for e := range sub.Events() {
		s.mu.Lock()
		s.seq++
		key := replayKey(s.seq)
		s.mu.Unlock()
		s.replay.SetDefault(key, e)
	}
}

func replayKey(seq uint64) string {
	return "evt:" + time.Now().Format("20060102150405") + ":" + itoa(seq)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// streamEvents upgrades to a websocket connection, replays the buffered
// recent events, then relays every new Event the Bus publishes until the
// client disconnects.
func (s *Server) streamEvents(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, item := range s.replay.Items() {
		if e, ok := item.Object.(events.Event); ok {
			if err := conn.WriteJSON(e); err != nil {
				return nil
			}
		}
	}

	if s.bus == nil {
		return nil
	}
	sub := s.bus.Subscribe()
	defer sub.Close()

	for e := range sub.Events() {
		if err := conn.WriteJSON(e); err != nil {
			return nil
		}
	}
	return nil
}
