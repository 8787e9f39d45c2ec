package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
)

// ErrStreamInterrupted is yielded when the server reports that the question
// stream failed after partial output.
var ErrStreamInterrupted = errors.New("tinyleap: question stream interrupted")

// StreamQuestion asks the coach for its next question and yields the text
// as it arrives. A non-nil error is yielded at most once and ends the
// sequence. Breaking out of the loop closes the connection.
func (c *Client) StreamQuestion(ctx context.Context, q QuestionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req, err := c.newRequest(ctx, http.MethodPost, "/api/behaviors/coach/next/stream", q)
		if err != nil {
			yield("", err)
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.http.Do(req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			yield("", decodeError(resp))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		event := ""
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				event = ""
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				if event == "done" {
					return
				}
			case strings.HasPrefix(line, "data:") && event == "error":
				var e struct {
					Message string `json:"message"`
				}
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if json.Unmarshal([]byte(payload), &e) == nil && e.Message != "" {
					yield("", fmt.Errorf("%w: %s", ErrStreamInterrupted, e.Message))
					return
				}
				yield("", ErrStreamInterrupted)
				return
			case strings.HasPrefix(line, "data:") && event == "":
				var d struct {
					Delta string `json:"delta"`
				}
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if err := json.Unmarshal([]byte(payload), &d); err != nil {
					yield("", fmt.Errorf("decode stream event: %w", err))
					return
				}
				if d.Delta != "" && !yield(d.Delta, nil) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
			return
		}
		yield("", fmt.Errorf("stream ended without done event"))
	}
}

// NextQuestion collects a streamed question into one string.
func (c *Client) NextQuestion(ctx context.Context, q QuestionRequest) (string, error) {
	var sb strings.Builder
	for delta, err := range c.StreamQuestion(ctx, q) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta)
	}
	return sb.String(), nil
}
