package mockwf

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campsync/internal/logging"
)

// Server is a development stand-in for the agentic workflow backend. It
// serves the same three endpoints the console speaks to and answers prompts
// with a scripted five-stage transcript, so the sync engine can be exercised
// without any AI services.
type Server struct {
	logger   logging.Logger
	engine   *gin.Engine
	httpSrv  *http.Server
	upgrader websocket.Upgrader

	mu   sync.Mutex
	ln   net.Listener
	addr string
}

// NewServer builds the mock backend.
func NewServer(logger logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	server := &Server{
		logger: logging.OrNop(logger),
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	api := engine.Group("/api/workflow")
	api.GET("/status", server.handleStatus)
	api.POST("/message", server.handleMessage)
	api.GET("/ws", server.handleSocket)

	return server
}

// Start listens on addr (host:port, port 0 allowed for tests).
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.addr = ln.Addr().String()
	s.httpSrv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpSrv
	s.mu.Unlock()

	s.logger.Info("mock workflow backend listening on %s", s.Addr())
	go func() {
		_ = srv.Serve(ln)
	}()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMessage(c *gin.Context) {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	s.logger.Info("fallback message received: %q", body.Content)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (s *Server) handleSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	session := &session{server: s, conn: conn}
	go session.run()
}

// session drives one connected console through the scripted pipeline.
type session struct {
	server *Server
	conn   *websocket.Conn

	writeMu sync.Mutex
	phase   phase
}

func (sess *session) run() {
	defer sess.conn.Close()
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		sess.handle(strings.TrimSpace(string(data)))
	}
}

func (sess *session) handle(text string) {
	switch {
	case text == "":
		return
	case text == "approve" || strings.HasPrefix(text, "approve:"):
		sess.advance()
	case text == "approve_schedule":
		sess.phase = phaseDone
		sess.play(instagramScript())
	case text == "reject" || text == "reject_schedule":
		sess.play(revisionScript(""))
		sess.replayPending()
	case strings.HasPrefix(text, "reject:"):
		sess.play(revisionScript(strings.TrimSpace(strings.TrimPrefix(text, "reject:"))))
		sess.replayPending()
	default:
		// Free-text prompt starts the pipeline over. The console renders the
		// prompt locally, so it is not echoed back.
		sess.phase = phaseBriefPending
		sess.play(plannerScript(text))
	}
}

func (sess *session) advance() {
	switch sess.phase {
	case phaseBriefPending:
		sess.phase = phaseCreativePending
		sess.play(creativeScript())
	case phaseCreativePending:
		sess.phase = phaseLocalizationPending
		sess.play(localizationScript())
	case phaseLocalizationPending:
		sess.phase = phaseSchedulePending
		sess.play(publishingScript())
	default:
		sess.server.logger.Warn("approve received with nothing pending (phase %d)", sess.phase)
	}
}

func (sess *session) replayPending() {
	switch sess.phase {
	case phaseBriefPending:
		sess.play(plannerScript("revised request"))
	case phaseCreativePending:
		sess.play(creativeScript())
	case phaseLocalizationPending:
		sess.play(localizationScript())
	case phaseSchedulePending:
		sess.play(publishingScript())
	}
}

func (sess *session) play(steps []step) {
	go func() {
		for _, st := range steps {
			if st.delay > 0 {
				time.Sleep(st.delay)
			}
			sess.write(st.payload)
		}
	}()
}

func (sess *session) write(payload map[string]any) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := sess.conn.WriteJSON(payload); err != nil {
		sess.server.logger.Debug("mock write failed: %v", err)
	}
}
