package annotation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"anotador/middleware"
)

// Client talks to the annotation persistence endpoints:
//
//	GET  {base}/annotations/{documentID}
//	POST {base}/annotations/save
//
// The save endpoint replaces the whole remote set; there is no partial
// update.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
}

var _ Remote = (*Client)(nil)

// NewClient builds a client with an explicit request timeout so a
// hanging request cannot leave a view loading forever.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		validate: validator.New(),
	}
}

// Authenticate attaches the session bearer token to every request.
func (c *Client) Authenticate(token string) {
	middleware.Authenticate(c.httpClient, token)
}

type loadResponse struct {
	Annotations []Annotation `json:"annotations"`
}

type saveRequest struct {
	DocumentID  string       `json:"document_id"`
	Annotations []Annotation `json:"annotations"`
}

// Load fetches the stored annotation set for a document. A malformed
// payload (bad JSON or records failing validation) is reported as a
// load failure instead of leaking half-parsed records into the view.
func (c *Client) Load(ctx context.Context, documentID string) ([]Annotation, error) {
	url := fmt.Sprintf("%s/annotations/%s", c.baseURL, documentID)

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
		return nil, fmt.Errorf("annotation load error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var payload loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed annotation payload: %w", err)
	}

	for i := range payload.Annotations {
		if err := c.validate.Struct(&payload.Annotations[i]); err != nil {
			return nil, fmt.Errorf("malformed annotation record %q: %w", payload.Annotations[i].ID, err)
		}
	}
	return payload.Annotations, nil
}

// Save submits the full annotation set as a replacement of whatever is
// stored remotely for the document.
func (c *Client) Save(ctx context.Context, documentID string, annotations []Annotation) error {
	body, err := json.Marshal(saveRequest{DocumentID: documentID, Annotations: annotations})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/annotations/save", c.baseURL)
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
		return fmt.Errorf("annotation save error: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
