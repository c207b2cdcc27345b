package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Route is one method and path pattern served by a [Handler].
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Handler defines the interface for handlers that own a set of routes.
type Handler interface {
	Routes() []Route
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers every route of a Handler
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Opts configures a [Server].
type Opts struct {
	Logger      *log.Logger
	Movies      []models.Movie // Catalog contents (default: [SeedMovies])
	TokenTTL    time.Duration  // Token lifetime; zero means tokens never expire
	BcryptCost  int            // Password hashing cost (default: bcrypt.DefaultCost)
	ExtendedIDs bool           // Encode favorite movie ids as {"$oid": ...}
}

// Server is the development catalog server.
type Server struct {
	store   *Store
	router  *BasicRouter
	logger  *log.Logger
	started chan net.Addr
}

// New creates a [Server] with a fresh [Store].
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Movies == nil {
		opts.Movies = SeedMovies()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	store := NewStore(opts.Movies, opts.BcryptCost, opts.TokenTTL)

	router := NewBasicRouter()
	router.Use(Recoverer(opts.Logger), RequestLogger(opts.Logger))
	router.Handler(NewAPI(store, opts.ExtendedIDs))

	return &Server{store: store, router: router, logger: opts.Logger, started: make(chan net.Addr, 1)}
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Started receives the listener address once [Server.Run] is accepting connections.
func (s *Server) Started() <-chan net.Addr {
	return s.started
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully with a 5 second limit.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("catalog server listening", "addr", lis.Addr().String())
		s.started <- lis.Addr()
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info("shutting down catalog server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
