// Package project is the client for project metadata, the public
// library listing and document content retrieval.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"anotador/middleware"
)

// File is one uploaded document inside a project version.
type File struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileType string `json:"file_type"`
}

// Version is one submitted revision of a project.
type Version struct {
	Number    int       `json:"number"`
	Files     []File    `json:"files"`
	CreatedAt time.Time `json:"created_at"`
}

// Metadata carries the workflow fields of a project.
type Metadata struct {
	CurrentVersion int    `json:"current_version"`
	Status         string `json:"status"`
	Career         string `json:"career,omitempty"`
}

// Project is a student project with its submitted versions.
type Project struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Versions []Version `json:"versions"`
}

// CurrentFile returns the first file of the current version, the
// document the viewers open.
func (p *Project) CurrentFile() (File, error) {
	idx := p.Metadata.CurrentVersion - 1
	if idx < 0 || idx >= len(p.Versions) {
		return File{}, fmt.Errorf("project %s has no version %d", p.ID, p.Metadata.CurrentVersion)
	}
	files := p.Versions[idx].Files
	if len(files) == 0 {
		return File{}, fmt.Errorf("project %s version %d has no files", p.ID, p.Metadata.CurrentVersion)
	}
	return files[0], nil
}

// Client talks to the project endpoints.
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

// Get fetches a single project with its versions and files.
func (c *Client) Get(ctx context.Context, id string) (*Project, error) {
	url := fmt.Sprintf("%s/projects/%s", c.baseURL, id)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var p Project
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed project payload: %w", err)
	}
	return &p, nil
}

type listResponse struct {
	Projects []Project `json:"projects"`
}

// List fetches the public library listing.
func (c *Client) List(ctx context.Context) ([]Project, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/projects", c.baseURL))
	if err != nil {
		return nil, err
	}

	var payload listResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed project listing: %w", err)
	}
	return payload.Projects, nil
}

type parseResponse struct {
	HTML string `json:"html"`
}

// ParseDocx asks the API to convert a project's DOCX document and
// returns the resulting HTML.
func (c *Client) ParseDocx(ctx context.Context, id string) (string, error) {
	url := fmt.Sprintf("%s/docx/parse/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("docx parse error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var payload parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("malformed docx parse response: %w", err)
	}
	return payload.HTML, nil
}

// FetchFile downloads a document by its upload path.
func (c *Client) FetchFile(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%s/uploads/%s", c.baseURL, path))
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
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
		return nil, fmt.Errorf("project fetch error: status=%d body=%s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
