package fragment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloudscribe/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an httptest-backed fragment server covering both the HTTP
// and the streaming surface.
type fakeStore struct {
	mu  sync.Mutex
	doc json.RawMessage

	reject bool // force write rejections
}

func (f *fakeStore) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /fragments", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"fragment_id": "frag-1"})
	})
	mux.HandleFunc("GET /fragments/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Fragment-Secret") != "s3cret" {
			http.Error(w, "locked", http.StatusForbidden)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Write(f.doc)
	})
	mux.HandleFunc("PUT /fragments/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.reject {
			http.Error(w, "rejected", http.StatusConflict)
			return
		}
		raw := json.RawMessage{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.doc = raw
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			var msg streamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Action {
			case "read":
				f.mu.Lock()
				doc := f.doc
				f.mu.Unlock()
				conn.WriteJSON(streamMessage{Status: "ok", Data: doc})
			case "write":
				f.mu.Lock()
				f.doc = msg.Data
				f.mu.Unlock()
				conn.WriteJSON(streamMessage{Status: "ok"})
			default:
				conn.WriteJSON(streamMessage{Error: "unknown action"})
			}
		}
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeStore) (*Client, *httptest.Server) {
	server := httptest.NewServer(fake.handler(t))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/stream"

	c := New(server.URL, wsURL, "api-key")
	c.FragmentID = "frag-1"
	c.Secret = "s3cret"
	return c, server
}

func TestHTTPReadWrite(t *testing.T) {
	fake := &fakeStore{doc: json.RawMessage(`{}`)}
	c, server := newTestClient(t, fake)
	defer server.Close()

	doc := store.NewDocument()
	doc.Users["u1"] = store.User{ID: "u1", Username: "alice", Keyphrase: "k", Created: store.Timestamp()}

	require.NoError(t, c.Write(context.Background(), doc))

	got, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestReadFailsWithWrongSecret(t *testing.T) {
	fake := &fakeStore{doc: json.RawMessage(`{}`)}
	c, server := newTestClient(t, fake)
	defer server.Close()

	c.Secret = "wrong"
	_, err := c.Read(context.Background())
	assert.Error(t, err)
}

func TestWriteRejection(t *testing.T) {
	fake := &fakeStore{doc: json.RawMessage(`{}`), reject: true}
	c, server := newTestClient(t, fake)
	defer server.Close()

	err := c.Write(context.Background(), store.NewDocument())
	assert.Error(t, err)
}

func TestProvisionRequest(t *testing.T) {
	fake := &fakeStore{doc: json.RawMessage(`{}`)}
	c, server := newTestClient(t, fake)
	defer server.Close()

	c.FragmentID = ""
	require.NoError(t, c.Request(context.Background(), "test request"))
	assert.Equal(t, "frag-1", c.FragmentID)
}

func TestStreamRoundTrip(t *testing.T) {
	fake := &fakeStore{doc: json.RawMessage(`{}`)}
	c, server := newTestClient(t, fake)
	defer server.Close()

	ctx := context.Background()
	require.NoError(t, c.InitStream(ctx))
	defer c.Disconnect()
	assert.True(t, c.Connected())

	doc := store.NewDocument()
	doc.Notes["n1"] = store.Note{ID: "n1", Title: "hello", Content: "world", Created: store.Timestamp(), Tags: []string{}}

	require.NoError(t, c.WriteStream(ctx, doc))

	got, err := c.ReadStream(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// Each exchange leaves two entries in the history.
	history := c.History()
	require.Len(t, history, 4)
	assert.True(t, strings.HasPrefix(history[0], ">> "))
	assert.True(t, strings.HasPrefix(history[1], "<< "))

	c.Disconnect()
	assert.False(t, c.Connected())

	_, err = c.ReadStream(ctx)
	assert.ErrorIs(t, err, ErrNoStream)
}

func TestCredentialsRoundTrip(t *testing.T) {
	c := New("http://api", "ws://api/stream", "key")
	c.SetCredentials(store.Credentials{FragmentID: "f", Secret: "s"})
	creds := c.Credentials()
	assert.Equal(t, "f", creds.FragmentID)
	assert.Equal(t, "s", creds.Secret)
	assert.Equal(t, "key", creds.APIKey, "API key survives when the artifact has none")
}
