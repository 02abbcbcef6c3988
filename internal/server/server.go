// Package server wires storage, the import pipeline, and the HTTP API.
package server

import (
	"context"
	"net/http"

	"github.com/rumor-ml/commons.systems/bankimport/internal/category"
	"github.com/rumor-ml/commons.systems/bankimport/internal/handlers"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
	"github.com/rumor-ml/commons.systems/bankimport/internal/learning"
	"github.com/rumor-ml/commons.systems/bankimport/internal/middleware"
	"github.com/rumor-ml/commons.systems/bankimport/internal/registry"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
	fsstore "github.com/rumor-ml/commons.systems/bankimport/internal/store/firestore"
)

// Server is the bank import API server.
type Server struct {
	fsClient *fsstore.Client
	mux      *http.ServeMux
}

// Options configure the server.
type Options struct {
	ProjectID       string
	CredentialsFile string
	ImportOptions   importer.Options
}

// New creates a server backed by Firestore.
func New(ctx context.Context, opts Options) (*Server, error) {
	fsClient, err := fsstore.NewClient(ctx, opts.ProjectID, opts.CredentialsFile)
	if err != nil {
		return nil, err
	}

	s := &Server{
		fsClient: fsClient,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes(opts.ImportOptions)
	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(importOpts importer.Options) {
	// Health check (no auth required).
	s.mux.HandleFunc("/health", handlers.HealthCheck)

	engine := rules.NewEngine(s.fsClient)
	categories := category.NewService(s.fsClient)
	reconciler := importer.NewReconciler(s.fsClient, engine, categories, importOpts)
	imp := importer.New(registry.New(), reconciler)
	learner := learning.NewService(s.fsClient)

	apiHandler := handlers.NewAPIHandler(imp, learner, s.fsClient)
	authMiddleware := middleware.NewAuthMiddleware(s.fsClient.Auth)

	// Protected API routes.
	s.mux.Handle("POST /api/import", authMiddleware.RequireAuth(http.HandlerFunc(apiHandler.Import)))
	s.mux.Handle("GET /api/transactions", authMiddleware.RequireAuth(http.HandlerFunc(apiHandler.GetTransactions)))
	s.mux.Handle("GET /api/categories", authMiddleware.RequireAuth(http.HandlerFunc(apiHandler.GetCategories)))
	s.mux.Handle("POST /api/transactions/{id}/category", authMiddleware.RequireAuth(http.HandlerFunc(apiHandler.Recategorize)))
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return middleware.CORS(s.mux)
}

// Close closes the server resources.
func (s *Server) Close() error {
	return s.fsClient.Close()
}
