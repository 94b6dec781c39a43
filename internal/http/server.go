package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"gastos/internal/cache"
	"gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	"gastos/internal/session"
	"gastos/internal/view"
	appweb "gastos/web"
)

// Sessions is the session surface the shell consumes.
type Sessions interface {
	SignIn(ctx context.Context, email, password string) (*session.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) error
	Lookup(ctx context.Context, id string) (*session.Session, error)
	SignOut(ctx context.Context, id string) error
	OnInvalidate(fn func(*session.Session))
}

// Pinger is checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr               string
	CookieSecure       bool
	TrustedProxies     []string
	RateLimitPerMinute int
	WorkspaceCacheSize int
	WorkspaceTTL       time.Duration
	Logger             *log.Logger
	// Store is optional; when set, readiness pings it.
	Store Pinger
}

type appMetrics struct {
	uptime              time.Time
	signIns             int64
	transactionsCreated int64
	transactionsDeleted int64
	invitations         int64
	walletFunds         int64
}

type Server struct {
	http.Server
	pages       map[string]*template.Template
	templateErr error

	sessions     Sessions
	api          view.API
	journal      view.Journal
	registration *view.Registration
	store        Pinger
	logger       *log.Logger
	cookieSecure bool

	// One workspace per session, closed when evicted.
	workspaces *cache.LRUCache[*view.Workspace]
	caches     *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options, sessions Sessions, api view.API, journal view.Journal) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.WorkspaceCacheSize <= 0 {
		opts.WorkspaceCacheSize = 500
	}
	if opts.WorkspaceTTL <= 0 {
		opts.WorkspaceTTL = 12 * time.Hour
	}
	if journal == nil {
		journal = view.NopJournal()
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		sessions:         sessions,
		api:              api,
		journal:          journal,
		registration:     view.NewRegistration(sessions, opts.Logger),
		store:            opts.Store,
		logger:           logger,
		cookieSecure:     opts.CookieSecure,
		workspaces:       cache.NewLRUCache[*view.Workspace](opts.WorkspaceCacheSize, opts.WorkspaceTTL),
		caches:           cache.NewManager(),
		securityDetector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost},
		}),
		appMetrics: appMetrics{uptime: time.Now()},
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(opts.Logger, s.securityDetector.ExtractClientIP)

	s.workspaces.OnEvict(func(_ string, ws *view.Workspace) { ws.Close() })
	s.caches.Register("workspaces", s.workspaces)
	s.caches.StartCleanup(5 * time.Minute)
	sessions.OnInvalidate(func(sess *session.Session) { s.workspaces.Delete(sess.ID) })

	s.pages, s.templateErr = parseTemplates(appweb.TemplatesFS)
	if s.templateErr != nil {
		logger.Warn("Failed parsing templates", log.FieldError, s.templateErr)
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServerFS(sub))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	page := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }

	mux.Handle("GET /{$}", page(s.handleIndex))
	mux.Handle("GET /login", page(s.handleLoginPage))
	mux.Handle("POST /login", page(s.handleLogin))
	mux.Handle("GET /register", page(s.handleRegisterPage))
	mux.Handle("POST /register", page(s.handleRegister))
	mux.Handle("POST /logout", page(s.handleLogout))

	mux.Handle("GET /dashboard", page(s.protected(s.handleDashboard)))
	mux.Handle("GET /transactions", page(s.protected(s.handleTransactions)))
	mux.Handle("POST /transactions", page(s.protected(s.handleCreateTransaction)))
	mux.Handle("GET /transactions/new", page(s.protected(s.handleNewTransaction)))
	mux.Handle("GET /transactions/{id}/delete", page(s.protected(s.handleConfirmDelete)))
	mux.Handle("POST /transactions/{id}/delete", page(s.protected(s.handleDeleteTransaction)))
	mux.Handle("GET /couple", page(s.protected(s.handleCouple)))
	mux.Handle("POST /couple/invite", page(s.protected(s.handleInvite)))
	mux.Handle("POST /couple/fund", page(s.protected(s.handleFund)))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(handler)
	handler = s.securityDetector.Middleware(opts.Logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.NewFields().
			WithComponent(log.ComponentRateLimit).
			WithClientIP(s.securityDetector.ExtractClientIP(r)).ToSlice()...)
	const msg = "Demasiadas solicitudes. Intenta de nuevo en un minuto."
	ErrorResponse(http.StatusTooManyRequests, msg).
		Header("HX-Reswap", "none").
		TriggerErrorNotification(msg).
		Write(w)
}

// Shutdown stops the background loops, drains the HTTP server and closes
// every workspace.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.workspaces.Purge()
	})
	return shutdownErr
}

// Workspaces returns the number of live per-session workspaces.
func (s *Server) Workspaces() int { return s.workspaces.Size() }
