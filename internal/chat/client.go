// Package chat is the client for the conversation endpoints and the
// unread-message bookkeeping fed by the realtime notifier.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"anotador/middleware"
)

// Message is one chat message, optionally carrying an uploaded
// attachment.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
	FileURL    string    `json:"file_url,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	FileType   string    `json:"file_type,omitempty"`
	FileSize   int64     `json:"file_size,omitempty"`
}

// Attachment is the upload endpoint's response.
type Attachment struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// Client talks to the chat REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Authenticate attaches the session bearer token to every request.
func (c *Client) Authenticate(token string) {
	middleware.Authenticate(c.httpClient, token)
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// Messages fetches the conversation between two users.
func (c *Client) Messages(ctx context.Context, userID, otherID string) ([]Message, error) {
	url := fmt.Sprintf("%s/messages/%s/%s", c.baseURL, userID, otherID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat messages error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var payload messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed chat payload: %w", err)
	}
	return payload.Messages, nil
}

// Send posts a new message.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/send-message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat send error: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// MarkAsRead flags the whole conversation as read for the user.
func (c *Client) MarkAsRead(ctx context.Context, conversationID, userID string) error {
	url := fmt.Sprintf("%s/mark-as-read/%s?user_id=%s", c.baseURL, conversationID, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat mark-as-read error: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// Upload submits a chat attachment as a multipart form and returns the
// stored file metadata.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/upload", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat upload error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var att Attachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return nil, fmt.Errorf("malformed upload response: %w", err)
	}
	return &att, nil
}
