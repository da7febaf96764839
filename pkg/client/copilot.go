package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// maxStreamLine bounds one NDJSON line of the copilot stream.
const maxStreamLine = 1 << 20

// CopilotClient streams copilot answers.
type CopilotClient struct {
	client *Client
}

// Stream posts req and calls fn for every event of the NDJSON answer in
// arrival order. Blank and malformed lines are skipped. A transport
// failure is reported to fn as an error event and then returned; an error
// returned by fn stops the stream and is returned as is. Streams are never
// retried.
func (c *CopilotClient) Stream(ctx context.Context, req rtypes.CopilotChatRequest, fn func(rtypes.CopilotEvent) error) error {
	if strings.TrimSpace(req.CaseID) == "" {
		return errors.New(errors.ErrCodeCaseIDRequired, "case id is required")
	}

	err := c.stream(ctx, req, fn)
	if err == nil {
		return nil
	}
	var cbErr *callbackError
	if errors.As(err, &cbErr) {
		return cbErr.err
	}
	data, _ := json.Marshal(map[string]string{"message": err.Error()})
	_ = fn(rtypes.CopilotEvent{Type: rtypes.CopilotEventError, Data: data})
	return err
}

type callbackError struct{ err error }

func (e *callbackError) Error() string { return e.err.Error() }

func (c *CopilotClient) stream(ctx context.Context, req rtypes.CopilotChatRequest, fn func(rtypes.CopilotEvent) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	httpReq, requestID, err := c.client.newRequest(ctx, http.MethodPost, "/api/v1/copilot/chat/stream", body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/x-ndjson")
	httpReq.Header.Set("x-actor-id", c.client.actorID)

	resp, err := c.client.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStreamBroken, "copilot request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxStreamLine))
		return newAPIError(resp.StatusCode, requestID, respBody)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev rtypes.CopilotEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			c.client.logger.Debugf("skipping malformed stream line: %v", err)
			continue
		}
		if err := fn(ev); err != nil {
			return &callbackError{err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStreamBroken, "copilot stream interrupted")
	}
	return nil
}
