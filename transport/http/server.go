// Package http serves the execution endpoint and the ideas api over http
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/auth"
	"github.com/autom8ter/ideabase/blob"
	"github.com/autom8ter/ideabase/ideas"
	"github.com/autom8ter/ideabase/util"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

// Config configures the http server
type Config struct {
	Port int `json:"port" validate:"required,gt=0"`
	// MaxUploadMB caps the size of an uploaded file (default: 50)
	MaxUploadMB int64 `json:"max_upload_mb"`
}

// Server serves the execution endpoint and the ideas api
type Server struct {
	cfg     Config
	router  *mux.Router
	adapter *ideabase.Adapter
	ideas   *ideas.Service
	blob    *blob.Store
	auth    *auth.Authenticator
	policy  auth.Policy
	logger  ideabase.Logger
	mwares  []mux.MiddlewareFunc
}

// Opt is an option for configuring a Server
type Opt func(s *Server)

// WithLogger sets the server's logger
func WithLogger(logger ideabase.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBlobStore sets the store uploaded files are kept in
func WithBlobStore(store *blob.Store) Opt {
	return func(s *Server) {
		s.blob = store
	}
}

// WithAuthenticator sets the session authenticator
func WithAuthenticator(a *auth.Authenticator) Opt {
	return func(s *Server) {
		s.auth = a
	}
}

// WithAdminPolicy sets the policy guarding the admin api
func WithAdminPolicy(policy auth.Policy) Opt {
	return func(s *Server) {
		s.policy = policy
	}
}

// WithMiddlewares adds middlewares to every route
func WithMiddlewares(mwares ...mux.MiddlewareFunc) Opt {
	return func(s *Server) {
		s.mwares = append(s.mwares, mwares...)
	}
}

// New creates a Server executing queries with the adapter
func New(cfg Config, adapter *ideabase.Adapter, opts ...Opt) (*Server, error) {
	if err := util.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		adapter: adapter,
		auth:    auth.NewAuthenticator(auth.Config{}),
		policy:  auth.AdminRole,
		logger:  ideabase.NopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	svc, err := ideas.New(adapter, ideas.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.ideas = svc
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.Use(s.requestID, s.logRequests)
	s.router.Use(s.mwares...)
	s.router.HandleFunc("/health", s.healthHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/db", s.execHandler()).Methods(http.MethodPost)

	s.router.HandleFunc("/api/ideas", s.session(s.listIdeasHandler())).Methods(http.MethodGet)
	s.router.HandleFunc("/api/ideas", s.session(s.createIdeaHandler())).Methods(http.MethodPost)
	s.router.HandleFunc("/api/ideas/browse", s.browseHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/ideas/{id}", s.session(s.getIdeaHandler())).Methods(http.MethodGet)
	s.router.HandleFunc("/api/ideas/{id}", s.session(s.updateIdeaHandler())).Methods(http.MethodPut)
	s.router.HandleFunc("/api/ideas/{id}", s.session(s.deleteIdeaHandler())).Methods(http.MethodDelete)

	s.router.HandleFunc("/api/upload", s.session(s.uploadHandler())).Methods(http.MethodPost)
	s.router.HandleFunc("/api/idea-files/{id}", s.session(s.deleteFileHandler())).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/files/signed", s.signedURLHandler()).Methods(http.MethodPost)

	s.router.HandleFunc("/api/admin/ideas/feature", s.admin(s.featureHandler())).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/ideas/delete", s.admin(s.adminDeleteHandler())).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/pending-ideas", s.admin(s.pendingHandler())).Methods(http.MethodGet)
	s.router.HandleFunc("/api/admin/analytics", s.admin(s.analyticsHandler())).Methods(http.MethodGet)
}

// Handler returns the server's http handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve serves http until the context is cancelled
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	egp, ctx := errgroup.WithContext(ctx)
	egp.Go(func() error {
		s.logger.Info(ctx, "starting http server", map[string]any{"port": s.cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	egp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return egp.Wait()
}
