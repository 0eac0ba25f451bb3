// Package fragment is the client for the remote encrypted document store.
// A "fragment" is one hosted document slot, addressed by ID and unlocked
// with a secret plus an API key. Reads and writes go over plain HTTP
// request/response exchanges; stream.go adds the persistent connection.
package fragment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"cloudscribe/store"

	"github.com/gorilla/websocket"
)

const httpTimeout = 15 * time.Second

type Client struct {
	apiURL string
	wsURL  string

	// Credentials. FragmentID and Secret are filled either from the
	// persisted credentials file or by the provisioning flow.
	APIKey     string
	FragmentID string
	Secret     string

	http *http.Client

	mu      sync.Mutex // guards conn and history
	conn    *websocket.Conn
	history []string
}

func New(apiURL, wsURL, apiKey string) *Client {
	return &Client{
		apiURL: apiURL,
		wsURL:  wsURL,
		APIKey: apiKey,
		http:   &http.Client{Timeout: httpTimeout},
	}
}

// Request asks the remote store to provision a new fragment. The request
// stays pending until the account holder approves it remotely; reads fail
// until then.
func (c *Client) Request(ctx context.Context, reason string) error {
	body, _ := json.Marshal(map[string]string{
		"secret": c.Secret,
		"reason": reason,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/fragments", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fragment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("fragment request: %s", readError(resp))
	}

	var out struct {
		FragmentID string `json:"fragment_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("fragment request: decode response: %w", err)
	}
	c.FragmentID = out.FragmentID
	return nil
}

// Read fetches and decodes the fragment's document.
func (c *Client) Read(ctx context.Context) (*store.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fragmentURL(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fragment read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fragment read: %s", readError(resp))
	}

	doc := store.NewDocument()
	if err := json.NewDecoder(resp.Body).Decode(doc); err != nil {
		return nil, fmt.Errorf("fragment read: decode document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

// Write replaces the fragment's document wholesale.
func (c *Client) Write(ctx context.Context, doc *store.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("fragment write: encode document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.fragmentURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fragment write: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("fragment write: %s", readError(resp))
	}
	return nil
}

// Credentials snapshots the client's credential fields in the shape of
// the persisted artifact.
func (c *Client) Credentials() store.Credentials {
	return store.Credentials{FragmentID: c.FragmentID, Secret: c.Secret, APIKey: c.APIKey}
}

// SetCredentials installs loaded or provisioned credentials.
func (c *Client) SetCredentials(creds store.Credentials) {
	c.FragmentID = creds.FragmentID
	c.Secret = creds.Secret
	if creds.APIKey != "" {
		c.APIKey = creds.APIKey
	}
}

func (c *Client) fragmentURL() string {
	return c.apiURL + "/fragments/" + c.FragmentID
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("X-API-Key", c.APIKey)
	req.Header.Set("X-Fragment-Secret", c.Secret)
}

func readError(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(b) == 0 {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, b)
}
