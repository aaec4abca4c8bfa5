package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
	"github.com/mailroom-bot/mailroom-backend/internal/surface"
)

// Client speaks JSON over HTTP to the messaging gateway sidecar (the
// process that owns the actual chat-platform connection) and adapts it to
// the surface.Transport capability set.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL, token string, log *logger.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing gateway base url")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With("client", "GatewayClient"),
	}, nil
}

type createContainerReq struct {
	OwnerUserID    string `json:"owner_user_id"`
	Title          string `json:"title"`
	InitialContent string `json:"initial_content"`
}

type createContainerResp struct {
	ContainerID string `json:"container_id"`
}

func (c *Client) CreateStaffContainer(ctx context.Context, ownerUserID, title, initialContent string) (string, error) {
	var out createContainerResp
	err := c.do(ctx, "create_container", http.MethodPost, "/v1/containers", createContainerReq{
		OwnerUserID:    ownerUserID,
		Title:          title,
		InitialContent: initialContent,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ContainerID, nil
}

type deliverReq struct {
	Destination surface.Destination     `json:"destination"`
	Message     surface.OutgoingMessage `json:"message"`
}

type deliverResp struct {
	MessageID string `json:"message_id"`
}

func (c *Client) DeliverMessage(ctx context.Context, dest surface.Destination, msg surface.OutgoingMessage) (string, error) {
	var out deliverResp
	err := c.do(ctx, "deliver_message", http.MethodPost, "/v1/messages", deliverReq{
		Destination: dest,
		Message:     msg,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.MessageID, nil
}

type editReq struct {
	Destination surface.Destination `json:"destination"`
	Content     string              `json:"content"`
}

func (c *Client) EditDeliveredMessage(ctx context.Context, dest surface.Destination, messageID, newContent string) error {
	return c.do(ctx, "edit_message", http.MethodPatch, "/v1/messages/"+messageID, editReq{
		Destination: dest,
		Content:     newContent,
	}, nil)
}

type deleteReq struct {
	Destination surface.Destination `json:"destination"`
}

func (c *Client) DeleteDeliveredMessage(ctx context.Context, dest surface.Destination, messageID string) error {
	return c.do(ctx, "delete_message", http.MethodDelete, "/v1/messages/"+messageID, deleteReq{Destination: dest}, nil)
}

func (c *Client) LockContainer(ctx context.Context, containerID string) error {
	return c.do(ctx, "lock_container", http.MethodPost, "/v1/containers/"+containerID+"/lock", struct{}{}, nil)
}

type reactionReq struct {
	Destination surface.Destination `json:"destination"`
	MessageID   string              `json:"message_id"`
	Emoji       string              `json:"emoji"`
}

func (c *Client) AddReaction(ctx context.Context, dest surface.Destination, messageID, emoji string) error {
	return c.do(ctx, "add_reaction", http.MethodPost, "/v1/reactions", reactionReq{
		Destination: dest,
		MessageID:   messageID,
		Emoji:       emoji,
	}, nil)
}

func (c *Client) RemoveReaction(ctx context.Context, dest surface.Destination, messageID, emoji string) error {
	return c.do(ctx, "remove_reaction", http.MethodDelete, "/v1/reactions", reactionReq{
		Destination: dest,
		MessageID:   messageID,
		Emoji:       emoji,
	}, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &surface.Error{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &surface.Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Network-level failures are retryable by the caller.
		return &surface.Error{Op: op, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &surface.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.log.Warn("Gateway call failed", "op", op, "status", resp.StatusCode, "body", string(raw))
	return &surface.Error{
		Op:        op,
		Transient: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		Err:       fmt.Errorf("gateway returned %d", resp.StatusCode),
	}
}
