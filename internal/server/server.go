/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
recommendation service and optional database into the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"glucomeal/internal/config"
	"glucomeal/internal/database"
	"glucomeal/internal/recommender"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// source names where the reference table was loaded from.
	source string

	// recommender serves every recommendation and export request.
	recommender *recommender.Service

	// db is nil unless the reference table comes from Postgres.
	db database.Service
}

// NewServer returns a configured *http.Server for the given dependencies.
// db may be nil.
func NewServer(cfg *config.Config, rec *recommender.Service, db database.Service) *http.Server {
	newApp := &Server{
		port:        cfg.Port,
		source:      cfg.FoodSource,
		recommender: rec,
		db:          db,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,      // Time to wait for the next request on keep-alive connections.
		ReadTimeout:  10 * time.Second, // Maximum duration for reading the entire request.
		WriteTimeout: 30 * time.Second, // Maximum duration before timing out writes of the response.
	}

	return server
}
