package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/guardpost/apiserver/config"
	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/db"
	"github.com/guardpost/apiserver/internal/handlers"
	"github.com/guardpost/apiserver/internal/logging"
	"github.com/guardpost/apiserver/internal/metrics"
	"github.com/guardpost/apiserver/internal/mq"
	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/internal/services"
	"github.com/guardpost/apiserver/internal/storage"
	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/internal/summarizer"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, its router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	redis      *redis.Client
	dispatcher *notify.Dispatcher
	sessions   *auth.Manager
	purgeEvery time.Duration
	logger     *zap.Logger

	stopPurge context.CancelFunc
	purgeDone sync.WaitGroup
}

// New wires storage, services and handlers from cfg.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := logging.L()

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Server{db: dbConn, purgeEvery: cfg.Session.PurgeInterval, logger: logger}
	if err := s.wire(ctx, cfg); err != nil {
		s.closeResources()
		return nil, err
	}
	return s, nil
}

func (s *Server) wire(ctx context.Context, cfg config.Config) error {
	logger := s.logger

	userRepo := store.NewUserRepository(s.db)
	sessionRepo := store.NewSessionRepository(s.db)

	policy := auth.DefaultPolicy()
	if path := strings.TrimSpace(cfg.Auth.PolicyFile); path != "" {
		loaded, err := auth.LoadPolicy(path)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		policy = loaded
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.MaxConcurrentHashes)
	s.sessions = auth.NewManager(sessionRepo, cfg.Session.TTL, logger.Named("sessions"))
	cookie := auth.CookieConfig{
		Name:     cfg.Session.CookieName,
		TTL:      cfg.Session.TTL,
		Secure:   cfg.Session.Secure || cfg.IsProduction(),
		SameSite: auth.ParseSameSite(cfg.Session.SameSite),
	}
	guard := auth.NewGuard(s.sessions, userRepo, policy, cookie, logger.Named("guard"))

	throttle, err := s.loginThrottle(cfg)
	if err != nil {
		return err
	}

	var publisher notify.Publisher
	if cfg.Mail.Transport == "queue" {
		s.mq, err = mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("connect mq: %w", err)
		}
		publisher = s.mq
	}
	transport, err := notify.NewTransport(cfg.Mail, publisher, cfg.MQ.NotifyChannel, logger.Named("mail"))
	if err != nil {
		return err
	}
	s.dispatcher = notify.NewDispatcher(transport, cfg.Mail.Recipients, cfg.Mail.Timeout, logger.Named("notify"))

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %q: %w", objects.Bucket(), err)
	}

	linkSecret := cfg.Files.LinkSecret
	if linkSecret == "" {
		linkSecret = randomSecret()
		logger.Warn("FILE_LINK_SECRET not set, shared links will not survive a restart")
	}

	activity := services.NewActivityService(store.NewActivityRepository(s.db), logger.Named("activity"))
	userService := services.NewUserService(userRepo, hasher, s.sessions, activity, s.dispatcher, logger.Named("users"))

	authHandler := handlers.NewAuthHandler(auth.NewVerifier(userRepo, hasher), s.sessions, guard, throttle, userService, logger.Named("auth"))
	api := handlers.NewAPI(authHandler, handlers.Services{
		Users:        userService,
		Clients:      services.NewClientService(store.NewClientRepository(s.db), activity),
		Properties:   services.NewPropertyService(store.NewPropertyRepository(s.db), activity),
		Incidents:    services.NewIncidentService(store.NewIncidentRepository(s.db), activity, s.dispatcher),
		Patrols:      services.NewPatrolService(store.NewPatrolRepository(s.db), activity, s.dispatcher),
		Appointments: services.NewAppointmentService(store.NewAppointmentRepository(s.db), activity, s.dispatcher),
		Financials:   services.NewFinancialService(store.NewFinancialRepository(s.db), activity),
		Activities:   activity,
		Files: services.NewFileService(
			store.NewFileRepository(s.db),
			objects,
			services.NewLinkSigner(linkSecret, cfg.Files.LinkTTL),
			activity,
			logger.Named("files"),
		),
		Resources:  services.NewCommunityResourceService(store.NewResourceRepository(s.db), activity),
		Laws:       services.NewLawService(store.NewLawRepository(s.db), activity),
		Summarizer: summarizer.FromConfig(cfg.OpenAI, logger.Named("summarizer")),
	}, cfg.Files.MaxUploadBytes)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		clientAddress(cfg.TrustProxyHeaders),
		logging.Middleware(logger.Named("http")),
		middleware.Recoverer,
		metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", metrics.Handler())
	api.Mount(router, guard)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// clientAddress rewrites RemoteAddr from proxy headers only when the
// deployment sits behind a proxy that sets them.
func clientAddress(trustProxy bool) func(http.Handler) http.Handler {
	if trustProxy {
		return middleware.RealIP
	}
	return func(next http.Handler) http.Handler { return next }
}

func (s *Server) loginThrottle(cfg config.Config) (auth.Throttle, error) {
	if cfg.Auth.LoginAttempts <= 0 {
		return auth.NoThrottle{}, nil
	}
	if strings.TrimSpace(cfg.Redis.URL) == "" {
		return auth.NewMemoryThrottle(cfg.Auth.LoginAttempts, cfg.Auth.LoginWindow), nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	s.redis = redis.NewClient(opts)
	return auth.NewRedisThrottle(s.redis, cfg.Auth.LoginAttempts, cfg.Auth.LoginWindow), nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the session purge loop and the HTTP server. It returns nil
// once Shutdown has been called.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopPurge = cancel
	s.purgeDone.Add(1)
	go func() {
		defer s.purgeDone.Done()
		s.sessions.RunPurger(ctx, s.purgeEvery)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains in-flight requests and pending
// notifications within ctx, then releases the database, broker and cache.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopPurge != nil {
		s.stopPurge()
		s.purgeDone.Wait()
	}

	err := s.httpServer.Shutdown(ctx)
	if s.dispatcher != nil {
		if waitErr := s.dispatcher.Wait(ctx); waitErr != nil {
			s.logger.Warn("pending notifications abandoned", zap.Error(waitErr))
		}
	}
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func randomSecret() string {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}
