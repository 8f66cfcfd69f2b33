// Package client is the HTTP glue between a held session and the backend
// that issued it: every outgoing request automatically carries the bearer
// token and the caller's language preference, and an Unauthorized answer
// can optionally tear the session down.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenSource yields the current bearer token. *authstate.Manager
// satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// LanguageSource yields the current language tag for Accept-Language.
// *locale.Bundle satisfies it.
type LanguageSource interface {
	Language() string
}

// Transport decorates outgoing requests. Base defaults to
// http.DefaultTransport. OnUnauthorized, when set, runs after any response
// with status 401 — the usual wiring is a function that calls
// Manager.Logout so a revoked token does not linger locally.
type Transport struct {
	Base           http.RoundTripper
	Tokens         TokenSource
	Languages      LanguageSource
	OnUnauthorized func()
}

// RoundTrip implements http.RoundTripper. The request is cloned before
// mutation, per the RoundTripper contract.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.Tokens != nil {
		if token, ok := t.Tokens.Token(); ok && token != "" {
			clone.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if t.Languages != nil {
		if lang := t.Languages.Language(); lang != "" {
			clone.Header.Set("Accept-Language", lang)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(clone)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized()
	}
	return resp, nil
}

// APIError is a non-2xx response surfaced to the caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Body)
}

// Client wraps an http.Client with a base URL and JSON helpers.
type Client struct {
	base *url.URL
	http *http.Client
}

// New builds a Client rooted at baseURL, sending every request through
// transport.
func New(baseURL string, transport *Transport) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	return &Client{
		base: base,
		http: &http.Client{Transport: transport},
	}, nil
}

// GetJSON issues a GET and decodes a 2xx JSON body into out. out may be
// nil to discard the body.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// PostJSON issues a POST with in as the JSON body and decodes a 2xx JSON
// response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("client: parse path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
