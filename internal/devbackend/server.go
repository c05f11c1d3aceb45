// Package devbackend is an in-memory implementation of the outbreak
// reporting REST API. It serves local runs of the client and end-to-end
// tests, and enforces the same Draft-only report updates as the production
// backend.
package devbackend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/outbreak-reporting/report-client/internal/domain"
	"github.com/outbreak-reporting/report-client/internal/middleware"
	"github.com/outbreak-reporting/report-client/internal/workflow"
)

const maxPageSize = 20

// Server represents the development HTTP server
type Server struct {
	config domain.ServerConfig
	store  *Store
	auth   *authenticator
	router *gin.Engine
	server *http.Server
	log    *logrus.Logger
}

// NewServer creates a server over store. A missing password is an error; a
// missing JWT secret is replaced by a random one.
func NewServer(cfg domain.ServerConfig, store *Store, logger *logrus.Logger) (*Server, error) {
	auth, err := newAuthenticator(cfg.Username, cfg.Password, cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure authentication: %w", err)
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))

	s := &Server{
		config: cfg,
		store:  store,
		auth:   auth,
		router: router,
		log:    logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", listener.Addr().String()).Info("Development backend listening")
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthcheck", s.handleHealth)
	s.router.POST("/token", s.handleToken)

	api := s.router.Group("/api", s.auth.middleware())
	{
		api.GET("/reports", s.handleListReports)
		api.GET("/reports/recent", s.handleRecentReport)
		api.GET("/reports/:id", s.handleGetReport)
		api.PUT("/reports/:id", s.handleUpdateReport)

		api.GET("/reports/:id/reporter", s.handleGetReporter)
		api.POST("/reports/:id/reporter", s.handleUpsertReporter)
		api.GET("/reports/:id/patient", s.handleGetPatient)
		api.POST("/reports/:id/patient", s.handleUpsertPatient)
		api.GET("/reports/:id/disease", s.handleGetDisease)
		api.POST("/reports/:id/disease", s.handleUpsertDisease)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) handleToken(c *gin.Context) {
	token, err := s.auth.login(c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		s.log.WithField("request_id", c.GetString("request_id")).Warn("Rejected login")
		unauthorized(c, "Incorrect username or password")
		return
	}
	c.JSON(http.StatusOK, domain.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleListReports(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		detail(c, http.StatusUnprocessableEntity, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(c, "limit", maxPageSize)
	if err != nil || limit < 0 || limit > maxPageSize {
		detail(c, http.StatusUnprocessableEntity, fmt.Sprintf("limit must be between 0 and %d", maxPageSize))
		return
	}

	reports := s.store.List(offset, limit)
	if len(reports) == 0 {
		detail(c, http.StatusNotFound, "Reports do not exist")
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) handleRecentReport(c *gin.Context) {
	report, ok := s.store.Recent()
	if !ok {
		detail(c, http.StatusNotFound, "Reports do not exist")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGetReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, found := s.store.Report(id)
	if !found {
		detail(c, http.StatusNotFound, "Report does not exist")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleUpdateReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var update domain.ReportUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !workflow.IsValid(update.Status) {
		detail(c, http.StatusUnprocessableEntity, fmt.Sprintf("invalid status %q", update.Status))
		return
	}

	report, found, editable := s.store.SetStatus(id, update.Status, c.GetInt64(userIDKey))
	switch {
	case !found:
		detail(c, http.StatusNotFound, "Report does not exist")
		return
	case !editable:
		detail(c, http.StatusMethodNotAllowed, "Report cannot be modified")
		return
	}

	s.log.WithFields(logrus.Fields{
		"report_id": id,
		"status":    report.Status,
	}).Info("Report updated")
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGetReporter(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	reporter, found := s.store.Reporter(id)
	if !found {
		detail(c, http.StatusNotFound, "Reporter does not exist")
		return
	}
	c.JSON(http.StatusOK, reporter)
}

func (s *Server) handleUpsertReporter(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.ReporterUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.store.UpsertReporter(id, update))
}

func (s *Server) handleGetPatient(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	patient, found := s.store.Patient(id)
	if !found {
		detail(c, http.StatusNotFound, "Patient does not exist")
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) handleUpsertPatient(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.PatientUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.store.UpsertPatient(id, update))
}

func (s *Server) handleGetDisease(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	disease, found := s.store.Disease(id)
	if !found {
		detail(c, http.StatusNotFound, "The Disease record was not found")
		return
	}
	c.JSON(http.StatusOK, disease)
}

func (s *Server) handleUpsertDisease(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.DiseaseUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.store.UpsertDisease(id, update, c.GetInt64(userIDKey)))
}

func detail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		detail(c, http.StatusUnprocessableEntity, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
