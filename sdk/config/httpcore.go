// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

type CoreHTTP interface {
	NewRequest(ctx context.Context, method, url string, body io.Reader, contentType string, contentLength int64) (*http.Request, error)
	Do(req *http.Request, policy TimeoutPolicy) (*http.Response, error)
	CloseIdleConnections()
}

type httpCore struct {
	coreConfig CoreConfig
	base       *http.Transport

	mu      sync.Mutex
	clients map[TimeoutPolicy]*http.Client
}

// NewHTTPCore returns a CoreHTTP that keeps one client per timeout policy, so
// connections tuned for a long upload are never reused by a short form post.
func NewHTTPCore(coreConfig CoreConfig) CoreHTTP {
	return &httpCore{
		coreConfig: coreConfig,
		base:       http.DefaultTransport.(*http.Transport).Clone(),
		clients:    map[TimeoutPolicy]*http.Client{},
	}
}

// NewRequest builds the request and sets auth headers. A non-positive
// contentLength leaves the body length unknown (chunked).
func (httpCore *httpCore) NewRequest(ctx context.Context, method, url string, body io.Reader, contentType string, contentLength int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil && contentLength > 0 {
		req.ContentLength = contentLength
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// If access token is set, add Authorization header
	if tok := httpCore.coreConfig.AccessToken; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	// If basic auth is set, add Basic Auth header
	if user := httpCore.coreConfig.BasicAuthUsername; user != "" {
		req.SetBasicAuth(user, httpCore.coreConfig.BasicAuthPassword)
	}
	return req, nil
}

func (httpCore *httpCore) Do(req *http.Request, policy TimeoutPolicy) (*http.Response, error) {
	return httpCore.client(policy).Do(req)
}

func (httpCore *httpCore) CloseIdleConnections() {
	httpCore.mu.Lock()
	defer httpCore.mu.Unlock()
	for _, c := range httpCore.clients {
		c.CloseIdleConnections()
	}
}

func (httpCore *httpCore) client(policy TimeoutPolicy) *http.Client {
	httpCore.mu.Lock()
	defer httpCore.mu.Unlock()
	if c, ok := httpCore.clients[policy]; ok {
		return c
	}
	c := newPolicyClient(httpCore.base, policy)
	httpCore.clients[policy] = c
	return c
}

func newPolicyClient(base *http.Transport, policy TimeoutPolicy) *http.Client {
	tr := base.Clone()
	dialer := &net.Dialer{Timeout: policy.Connect, KeepAlive: 30 * time.Second}
	tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if policy.Read <= 0 && policy.Write <= 0 {
			return conn, nil
		}
		return &deadlineConn{Conn: conn, read: policy.Read, write: policy.Write}, nil
	}
	tr.TLSHandshakeTimeout = policy.Connect
	return &http.Client{Transport: tr, Timeout: policy.TotalCall}
}

// deadlineConn pushes its deadlines forward on every I/O call. A write also
// extends the read deadline: the transport reads the response concurrently
// with the request body, and that read must not expire while an upload is
// still making progress.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	now := time.Now()
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(now.Add(c.write)); err != nil {
			return 0, err
		}
	}
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(now.Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}
