package fragment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloudscribe/store"

	"github.com/gorilla/websocket"
)

const streamTimeout = 10 * time.Second

// ErrNoStream means a stream operation was attempted before InitStream.
var ErrNoStream = errors.New("fragment: stream not initialized")

// streamMessage is one frame on the persistent connection. Requests carry
// an action; responses carry a status and, for reads, the document.
type streamMessage struct {
	Action string          `json:"action,omitempty"`
	Status string          `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// InitStream dials the persistent connection. The caller is responsible
// for serializing stream operations; the connection handles one exchange
// at a time.
func (c *Client) InitStream(ctx context.Context) error {
	header := http.Header{}
	header.Set("X-API-Key", c.APIKey)
	header.Set("X-Fragment-Secret", c.Secret)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL+"?fragment="+c.FragmentID, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("fragment stream dial: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("fragment stream dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.history = nil
	c.mu.Unlock()
	return nil
}

// ReadStream fetches the document over the persistent connection.
func (c *Client) ReadStream(ctx context.Context) (*store.Document, error) {
	reply, err := c.exchange(ctx, streamMessage{Action: "read"})
	if err != nil {
		return nil, err
	}

	doc := store.NewDocument()
	if err := json.Unmarshal(reply.Data, doc); err != nil {
		return nil, fmt.Errorf("fragment stream read: decode document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

// WriteStream pushes the document over the persistent connection.
func (c *Client) WriteStream(ctx context.Context, doc *store.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("fragment stream write: encode document: %w", err)
	}
	_, err = c.exchange(ctx, streamMessage{Action: "write", Data: data})
	return err
}

// exchange performs one request/response round trip and records both
// frames in the history.
func (c *Client) exchange(ctx context.Context, msg streamMessage) (*streamMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNoStream
	}

	deadline := time.Now().Add(streamTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	out, _ := json.Marshal(msg)
	c.history = append(c.history, ">> "+string(out))

	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, out); err != nil {
		return nil, fmt.Errorf("fragment stream %s: %w", msg.Action, err)
	}

	c.conn.SetReadDeadline(deadline)
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("fragment stream %s: %w", msg.Action, err)
	}
	c.history = append(c.history, "<< "+string(raw))

	var reply streamMessage
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("fragment stream %s: decode reply: %w", msg.Action, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("fragment stream %s: remote error: %s", msg.Action, reply.Error)
	}
	return &reply, nil
}

// Disconnect closes the persistent connection, if any.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
}

// Connected reports whether a stream is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// History returns a copy of the exchanged-message log for this stream.
func (c *Client) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.history...)
}
