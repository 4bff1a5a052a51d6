// Package http provides the HTTP server, its middleware and route registration.
package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditHTTP "github.com/allisson/credstore/internal/audit/http"
	"github.com/allisson/credstore/internal/config"
	credentialsHTTP "github.com/allisson/credstore/internal/credentials/http"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionHTTP "github.com/allisson/credstore/internal/encryption/http"
	"github.com/allisson/credstore/internal/metrics"
)

// KeySetReader exposes the installed key set for readiness checks.
type KeySetReader interface {
	Current() *encryptionDomain.KeySet
}

// Server represents the HTTP server.
type Server struct {
	db       *sql.DB
	keySets  KeySetReader
	server   *http.Server
	router   *gin.Engine
	logger   *slog.Logger
	certFile string
	keyFile  string
}

func newHTTPServer(host string, port int, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new HTTP server. Call SetupRouter before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newHTTPServer(host, port, 60*time.Second),
	}
}

// ConfigureTLS serves HTTPS with the given certificate. When clientCAFile is set, client
// certificates signed by it are verified and their subject becomes the audited principal;
// clients without a certificate fall back to the principal header.
func (s *Server) ConfigureTLS(certFile, keyFile, clientCAFile string) error {
	if certFile == "" || keyFile == "" {
		return fmt.Errorf("tls requires both a certificate and a key file")
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if clientCAFile != "" {
		pemBytes, err := os.ReadFile(clientCAFile)
		if err != nil {
			return fmt.Errorf("failed to read client ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return fmt.Errorf("client ca file %s holds no PEM certificate", clientCAFile)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}

	s.server.TLSConfig = tlsConfig
	s.certFile = certFile
	s.keyFile = keyFile
	return nil
}

// SetupRouter builds the gin engine with middleware and every API route.
func (s *Server) SetupRouter(
	cfg *config.Config,
	credentialHandler *credentialsHTTP.CredentialHandler,
	keyHandler *encryptionHTTP.KeyHandler,
	auditHandler *auditHTTP.AuditHandler,
	keySets KeySetReader,
	metricsProvider *metrics.Provider,
) {
	s.keySets = keySets

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	data := v1.Group("/data")
	{
		data.POST("", credentialHandler.GenerateHandler)
		data.PUT("", credentialHandler.SetHandler)
		data.GET("", credentialHandler.GetByNameHandler)
		data.DELETE("", credentialHandler.DeleteHandler)
		data.GET("/:id", credentialHandler.GetByIDHandler)
	}

	keys := v1.Group("/keys")
	{
		keys.GET("", keyHandler.ListHandler)
		keys.POST("/rotate", keyHandler.RotateHandler)
	}

	v1.GET("/audit", auditHandler.ListHandler)

	s.router = router
}

// GetHandler returns the configured router, nil until SetupRouter runs.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server",
		slog.String("addr", s.server.Addr),
		slog.Bool("tls", s.certFile != ""),
	)

	return serve(s.server, s.certFile, s.keyFile)
}

// serve blocks on srv, with TLS when certFile is set. A graceful shutdown is not an error.
func serve(srv *http.Server, certFile, keyFile string) error {
	var err error
	if certFile != "" {
		err = srv.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve on %s: %w", srv.Addr, err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
