package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/engine"
)

// apiClient talks to the narrative API on behalf of one player
type apiClient struct {
	client   *http.Client
	baseURL  string
	playerID string
}

// apiError is the body of a failed request: either an engine result or a
// plain error response
type apiError struct {
	Status  int    `json:"-"`
	Text    string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Text != "" {
		return e.Text
	}
	return fmt.Sprintf("API returned status %d", e.Status)
}

func (c *apiClient) testConnection() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) playerPath(format string, args ...any) string {
	return c.baseURL + "/v1/players/" + url.PathEscape(c.playerID) + fmt.Sprintf(format, args...)
}

// do sends a request and decodes a 200 response into out
func (c *apiClient) do(method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errorResp := &apiError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, errorResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return errorResp
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) result(method, target string, body any) (*engine.Result, error) {
	var res engine.Result
	if err := c.do(method, target, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// getProgress returns nil progress for a player that has never started a chapter
func (c *apiClient) getProgress() (*engine.Result, error) {
	res, err := c.result(http.MethodGet, c.playerPath("/progress"), nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Code == string(engine.CodeNotFound) {
		return &engine.Result{Success: true}, nil
	}
	return res, err
}

func (c *apiClient) availableChapters() ([]string, error) {
	res, err := c.result(http.MethodGet, c.playerPath("/chapters/available"), nil)
	if err != nil {
		return nil, err
	}
	return res.Chapters, nil
}

func (c *apiClient) getChapter(id string) (*chapter.Chapter, error) {
	var ch chapter.Chapter
	if err := c.do(http.MethodGet, c.baseURL+"/v1/chapters/"+url.PathEscape(id), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *apiClient) startChapter(id string) (*engine.Result, error) {
	return c.result(http.MethodPost, c.playerPath("/chapters/%s/start", url.PathEscape(id)), nil)
}

func (c *apiClient) completeChapter(id string) (*engine.Result, error) {
	return c.result(http.MethodPost, c.playerPath("/chapters/%s/complete", url.PathEscape(id)), nil)
}

func (c *apiClient) choose(index int) (*engine.Result, error) {
	return c.result(http.MethodPost, c.playerPath("/choices"), map[string]int{"choice_index": index})
}

func (c *apiClient) eligibleEvents() ([]string, error) {
	res, err := c.result(http.MethodGet, c.playerPath("/events"), nil)
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}

func (c *apiClient) triggerEvent(id string) (*engine.Result, error) {
	return c.result(http.MethodPost, c.playerPath("/events/%s/trigger", url.PathEscape(id)), nil)
}

func (c *apiClient) dashboard() (*consequence.Dashboard, error) {
	var dash consequence.Dashboard
	if err := c.do(http.MethodGet, c.playerPath("/consequences"), nil, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// listenToSSE connects to the player's notification stream and forwards
// every notification until ctx is done
func (c *apiClient) listenToSSE(ctx context.Context, out chan<- engine.Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.playerPath("/stream"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream outlives the request timeout
	streamClient := &http.Client{Transport: c.client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	return readSSE(ctx, resp.Body, out)
}

// readSSE parses "event:"/"data:" frames. Frames whose data is not a
// notification, such as the initial connected frame, are dropped. A frame
// cut off by the end of the stream is still delivered.
func readSSE(ctx context.Context, r io.Reader, out chan<- engine.Notification) error {
	emit := func(data string) error {
		if data == "" {
			return nil
		}
		var n engine.Notification
		if err := json.Unmarshal([]byte(data), &n); err != nil || n.Type == "" {
			return nil
		}
		select {
		case out <- n:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	scanner := bufio.NewScanner(r)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := emit(data); err != nil {
				return err
			}
			data = ""
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return emit(data)
}
