package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinytelemetry/lookout/internal/cmdline"
	"github.com/tinytelemetry/lookout/internal/history"
	"github.com/tinytelemetry/lookout/internal/logregistry"
	"github.com/tinytelemetry/lookout/internal/providers"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// DefaultAddr is the loopback address the control API binds by default.
const DefaultAddr = "127.0.0.1:3900"

// Provisioner turns a description into a pipeline.
type Provisioner interface {
	Provision(desc provision.SourceDescription) (*provision.Pipeline, error)
}

// Sessions is the read side of the session registry.
type Sessions interface {
	Pipelines() []*provision.Pipeline
	Selected() (*provision.Pipeline, int)
}

// Catalog lists the provider types that can be requested.
type Catalog interface {
	Types() []providers.Registration
}

// History lists past provisioning attempts.
type History interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Server is the local control API for adding sources to a running session.
type Server struct {
	addr        string
	provisioner Provisioner
	sessions    Sessions
	catalog     Catalog
	history     History
	server      *http.Server
	listener    net.Listener
	ctx         context.Context
	cancel      context.CancelFunc
	startTime   time.Time
}

// NewServer creates the API server. hist may be nil when history is disabled.
func NewServer(addr string, p Provisioner, sessions Sessions, catalog Catalog, hist History) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		provisioner: p,
		sessions:    sessions,
		catalog:     catalog,
		history:     hist,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/sessions", s.handleListSessions)
	r.POST("/api/sessions", s.handleProvision)
	r.POST("/api/sessions/cmdline", s.handleProvisionCommandLine)
	r.GET("/api/providers", s.handleProviders)
	r.GET("/api/history", s.handleHistory)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"sessions": len(s.sessions.Pipelines()),
	})
}

type providerView struct {
	Type  string `json:"type"`
	Addr  string `json:"addr"`
	State string `json:"state"`
}

type sessionView struct {
	Index     int            `json:"index"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Providers []providerView `json:"providers"`
	Requested int            `json:"requested"`
	Views     []string       `json:"views"`
	Selected  bool           `json:"selected"`
	Created   time.Time      `json:"created"`
}

func viewOf(p *provision.Pipeline, index int, selected bool) sessionView {
	v := sessionView{
		Index:     index,
		ID:        p.Log.ID,
		Name:      p.Name(),
		Kind:      string(p.Kind),
		Providers: make([]providerView, 0, len(p.Providers)),
		Requested: p.Requested,
		Selected:  selected,
		Created:   p.Created,
	}
	if p.Frame != nil {
		v.Views = p.Frame.Views()
	}
	for _, pr := range p.Providers {
		v.Providers = append(v.Providers, providerView{Type: pr.Type(), Addr: pr.Addr(), State: pr.State().String()})
	}
	return v
}

func (s *Server) handleListSessions(c *gin.Context) {
	_, selected := s.sessions.Selected()
	pipelines := s.sessions.Pipelines()

	out := make([]sessionView, 0, len(pipelines))
	for i, p := range pipelines {
		out = append(out, viewOf(p, i, i == selected))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *Server) handleProvision(c *gin.Context) {
	var desc provision.WizardDescription
	if err := c.ShouldBindJSON(&desc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	s.respond(c, desc)
}

func (s *Server) handleProvisionCommandLine(c *gin.Context) {
	var req struct {
		Args []string `json:"args"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	desc, err := cmdline.Parse(req.Args)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": provision.UserMessage(err), "usage": provision.Usage})
		return
	}
	s.respond(c, desc)
}

func (s *Server) respond(c *gin.Context, desc provision.SourceDescription) {
	p, err := s.provisioner.Provision(desc)
	if p == nil {
		c.JSON(statusFor(err), gin.H{"error": provision.UserMessage(err)})
		return
	}

	_, selected := s.sessions.Selected()
	index := len(s.sessions.Pipelines()) - 1
	for i, q := range s.sessions.Pipelines() {
		if q == p {
			index = i
		}
	}
	body := gin.H{"session": viewOf(p, index, index == selected)}
	if err != nil {
		body["error"] = provision.UserMessage(err)
		c.JSON(http.StatusMultiStatus, body)
		return
	}
	c.JSON(http.StatusCreated, body)
}

func statusFor(err error) int {
	var (
		malformed   *provision.MalformedCommandLineError
		unsupported *provision.UnsupportedCombinationError
		frameErr    *provision.FrameCreationError
	)
	switch {
	case errors.Is(err, logregistry.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, logregistry.ErrInvalidName),
		errors.As(err, &malformed),
		errors.As(err, &unsupported),
		errors.As(err, &frameErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.catalog.Types()})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
