/*
Copyright 2026 The rhino-pack Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


// Package testserver provides a fake Rhino API server for tests.
package testserver

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
)

// HTTPServer is an HTTP/S server for testing purposes.
// It serves the configured handler and offers a lightweight
// middleware configuration option.
type HTTPServer struct {
	handler    http.Handler
	middleware func(http.Handler) http.Handler
	server     *httptest.Server
}

// NewHTTPServer returns a HTTPServer serving the given handler.
func NewHTTPServer(handler http.Handler) *HTTPServer {
	return &HTTPServer{handler: handler}
}

// WithMiddleware configures the middleware of the HTTPServer, this can for
// example be used to delay or inspect requests. It should be called
// before starting the server, or requires a stop/start cycle.
func (s *HTTPServer) WithMiddleware(m func(handler http.Handler) http.Handler) *HTTPServer {
	s.middleware = m
	return s
}

func (s *HTTPServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.middleware != nil {
		s.middleware(s.handler).ServeHTTP(w, r)
		return
	}
	s.handler.ServeHTTP(w, r)
}

// Start starts the HTTPServer.
func (s *HTTPServer) Start() {
	s.server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
}

// StartTLS starts the HTTPServer with a self-signed certificate.
func (s *HTTPServer) StartTLS() {
	s.server = httptest.NewUnstartedServer(http.HandlerFunc(s.serveHTTP))
	s.server.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	s.server.StartTLS()
}

// Stop stops the HTTPServer, if started.
func (s *HTTPServer) Stop() {
	if s.server != nil {
		s.server.Close()
	}
}

// URL returns the address the HTTPServer is listening at,
// if started.
func (s *HTTPServer) URL() string {
	if s.server != nil {
		return s.server.URL
	}
	return ""
}

// Client returns an HTTP client trusting the certificate of the server,
// if started.
func (s *HTTPServer) Client() *http.Client {
	if s.server != nil {
		return s.server.Client()
	}
	return nil
}
