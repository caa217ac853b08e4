// Package graphql implements chat.Transport against the remote GraphQL backend.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matheus3301/buddytalk/internal/chat"
)

const messageFields = `messageId text datetime userId`

const (
	queryFetchLatest = `query FetchLatestMessages($channelId: String!) {
  fetchLatestMessages(channelId: $channelId) { ` + messageFields + ` }
}`
	queryFetchMore = `query FetchMoreMessages($channelId: String!, $messageId: String!, $old: Boolean!) {
  fetchMoreMessages(channelId: $channelId, messageId: $messageId, old: $old) { ` + messageFields + ` }
}`
	mutationPostMessage = `mutation PostMessage($channelId: String!, $text: String!, $userId: String!) {
  postMessage(channelId: $channelId, text: $text, userId: $userId) { ` + messageFields + ` }
}`
)

// Client is a GraphQL-over-HTTP transport.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a client posting to endpoint. A zero timeout means none.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

var _ chat.Transport = (*Client)(nil)

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

// wireMessage is the backend message shape.
type wireMessage struct {
	MessageID string    `json:"messageId"`
	Text      string    `json:"text"`
	Datetime  time.Time `json:"datetime"`
	UserID    string    `json:"userId"`
}

func (w wireMessage) toMessage(channelID string) chat.Message {
	return chat.Message{
		ID:        w.MessageID,
		SenderID:  w.UserID,
		ChannelID: channelID,
		Text:      w.Text,
		Timestamp: w.Datetime,
		Status:    chat.Sent,
	}
}

// FetchLatest returns the newest page of channelID, newest first.
func (c *Client) FetchLatest(ctx context.Context, channelID string) ([]chat.Message, error) {
	var out []wireMessage
	err := c.do(ctx, queryFetchLatest, "fetchLatestMessages", map[string]any{
		"channelId": channelID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return convert(out, channelID), nil
}

// FetchMore returns the page beyond anchorID in dir, newest first.
func (c *Client) FetchMore(ctx context.Context, channelID, anchorID string, dir chat.Direction) ([]chat.Message, error) {
	var out []wireMessage
	err := c.do(ctx, queryFetchMore, "fetchMoreMessages", map[string]any{
		"channelId": channelID,
		"messageId": anchorID,
		"old":       dir == chat.Older,
	}, &out)
	if err != nil {
		return nil, err
	}
	return convert(out, channelID), nil
}

// Send posts text as userID and returns the server-confirmed message.
func (c *Client) Send(ctx context.Context, channelID, userID, text string) (chat.Message, error) {
	var out *wireMessage
	err := c.do(ctx, mutationPostMessage, "postMessage", map[string]any{
		"channelId": channelID,
		"text":      text,
		"userId":    userID,
	}, &out)
	if err != nil {
		return chat.Message{}, err
	}
	if out == nil {
		return chat.Message{}, errors.New("postMessage returned no message")
	}
	return out.toMessage(channelID), nil
}

func convert(in []wireMessage, channelID string) []chat.Message {
	msgs := make([]chat.Message, 0, len(in))
	for _, w := range in {
		msgs = append(msgs, w.toMessage(channelID))
	}
	return msgs
}

func (c *Client) do(ctx context.Context, query, field string, vars map[string]any, out any) error {
	jsonData, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result response
	decodeErr := json.Unmarshal(body, &result)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && len(result.Errors) > 0 {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, joinErrors(result.Errors))
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%s: %s", field, joinErrors(result.Errors))
	}

	raw, ok := result.Data[field]
	if !ok {
		return fmt.Errorf("%s: missing from response", field)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return nil
}

func joinErrors(errs []gqlError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
