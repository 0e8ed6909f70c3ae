// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"
)

// envelope mirrors the response body every endpoint answers with
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type apiClient struct {
	t       *testing.T
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(t *testing.T) *apiClient {
	return &apiClient{
		t:       t,
		baseURL: testEnv.BaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// withToken returns a copy of the client sending token as bearer
func (c *apiClient) withToken(token string) *apiClient {
	cp := *c
	cp.token = token

	return &cp
}

// do sends body as JSON, fails the test on transport errors and decodes the envelope into out when set
func (c *apiClient) do(method, path string, body any, out any) (int, envelope) {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to encode body: %v", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.baseURL+path, r)
	if err != nil {
		c.t.Fatalf("failed to build request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			c.t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("failed to decode %s %s data: %v", method, path, err)
		}
	}

	return resp.StatusCode, env
}

// expect runs do and fails the test when the status differs
func (c *apiClient) expect(status int, method, path string, body any, out any) envelope {
	c.t.Helper()

	code, env := c.do(method, path, body, out)
	if code != status {
		c.t.Fatalf("%s %s: expected status %d, got %d: %s %s", method, path, status, code, env.Message, env.Errors)
	}

	return env
}

var hrefRegex = regexp.MustCompile(`href="([^"]+)"`)

// mailLinks polls mailpit for the newest message sent to recipient and returns the links it carries
func mailLinks(t *testing.T, recipient, subject string) []string {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {
		if id, ok := findMessage(t, client, recipient, subject); ok {
			return messageLinks(t, client, id)
		}

		time.Sleep(500 * time.Millisecond)
	}

	t.Fatalf("no email %q delivered to %s", subject, recipient)

	return nil
}

func findMessage(t *testing.T, client *http.Client, recipient, subject string) (string, bool) {
	t.Helper()

	query := url.Values{"query": {fmt.Sprintf("to:%q subject:%q", recipient, subject)}}

	resp, err := client.Get(testEnv.MailpitURL + "/api/v1/search?" + query.Encode())
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	var result struct {
		Messages []struct {
			ID string `json:"ID"`
		} `json:"messages"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || len(result.Messages) == 0 {
		return "", false
	}

	// newest first
	return result.Messages[0].ID, true
}

func messageLinks(t *testing.T, client *http.Client, id string) []string {
	t.Helper()

	resp, err := client.Get(testEnv.MailpitURL + "/api/v1/message/" + id)
	if err != nil {
		t.Fatalf("failed to fetch message %s: %v", id, err)
	}
	defer resp.Body.Close()

	var message struct {
		HTML string `json:"HTML"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		t.Fatalf("failed to decode message %s: %v", id, err)
	}

	var links []string
	for _, m := range hrefRegex.FindAllStringSubmatch(message.HTML, -1) {
		links = append(links, m[1])
	}

	return links
}

// linkTail returns the last n path segments of link
func linkTail(t *testing.T, link string, n int) []string {
	t.Helper()

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid link %q: %v", link, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < n {
		t.Fatalf("link %q has fewer than %d segments", link, n)
	}

	return parts[len(parts)-n:]
}

// uniqueEmail avoids collisions with runs against an existing deployment
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@care.test", prefix, time.Now().UnixNano())
}
