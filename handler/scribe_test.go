package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloudscribe/config"
	"cloudscribe/router"
	"cloudscribe/scheduler"
	"cloudscribe/scribedb"
	"cloudscribe/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

// memRemote is a minimal in-memory document store for API-level tests.
type memRemote struct {
	mu    sync.Mutex
	doc   *store.Document
	creds store.Credentials
}

func (m *memRemote) Request(ctx context.Context, reason string) error { return nil }

func (m *memRemote) Read(ctx context.Context) (*store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone(), nil
}

func (m *memRemote) Write(ctx context.Context, doc *store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc.Clone()
	return nil
}

func (m *memRemote) InitStream(ctx context.Context) error { return errors.New("not streaming") }
func (m *memRemote) ReadStream(ctx context.Context) (*store.Document, error) {
	return nil, errors.New("not streaming")
}
func (m *memRemote) WriteStream(ctx context.Context, doc *store.Document) error {
	return errors.New("not streaming")
}
func (m *memRemote) Disconnect()       {}
func (m *memRemote) Connected() bool   { return false }
func (m *memRemote) History() []string { return nil }

func (m *memRemote) Credentials() store.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds
}

func (m *memRemote) SetCredentials(creds store.Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	credsPath := filepath.Join(t.TempDir(), "credentials.json")
	raw, err := json.Marshal(store.Credentials{FragmentID: "frag-test", Secret: "s3cret", APIKey: "key"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(credsPath, raw, 0o600))

	cfg := config.Config{
		Mode:            config.ModeHTTP,
		CredentialsFile: credsPath,
		RefreshInterval: time.Hour,
		JWTSecret:       testJWTSecret,
	}

	registry := scheduler.NewRegistry()
	_, err = registry.InitDefault()
	require.NoError(t, err)
	t.Cleanup(func() { registry.Shutdown() })

	db := scribedb.New(&memRemote{doc: store.NewDocument()}, cfg, registry)
	require.NoError(t, db.Setup(context.Background()))
	t.Cleanup(db.Shutdown)

	srv := httptest.NewServer(router.Setup(db, testJWTSecret))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestAPIFullLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Register.
	var created store.UserInfo
	resp := doJSON(t, http.MethodPost, srv.URL+"/new/user", "",
		store.UserCreate{Username: "alice", Keyphrase: "wonderland"}, &created)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", created.Username)
	assert.NotEmpty(t, created.ID)

	// Duplicate username is rejected.
	resp = doJSON(t, http.MethodPost, srv.URL+"/new/user", "",
		store.UserCreate{Username: "alice", Keyphrase: "again"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Log in for a Bearer token.
	var login store.LoginResponse
	resp = doJSON(t, http.MethodPost, srv.URL+"/login", "",
		store.LoginRequest{Username: "alice", Keyphrase: "wonderland"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, created.ID, login.User.ID)
	token := login.Token

	// Create a journal and a note inside it.
	var journal store.Journal
	resp = doJSON(t, http.MethodPost, srv.URL+"/new/journal", token,
		store.JournalCreate{Title: "Travels", Description: "Trips and plans"}, &journal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, journal.AuthorID)

	var note store.Note
	resp = doJSON(t, http.MethodPost, srv.URL+"/new/note", token,
		store.NoteCreate{JournalID: journal.ID, Title: "Day one", Content: "Arrived late."}, &note)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Read the note back through the nested route.
	var got store.Note
	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/journal/%s/note/%s", srv.URL, journal.ID, note.ID), token, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Day one", got.Title)
	assert.Equal(t, "Arrived late.", got.Content)

	// Partial update stamps Modified and leaves the title alone.
	content := "Arrived late. Slept well."
	var updated store.Note
	resp = doJSON(t, http.MethodPut, fmt.Sprintf("%s/journal/%s/note/%s", srv.URL, journal.ID, note.ID), token,
		store.NoteUpdate{Content: &content}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Day one", updated.Title)
	assert.Equal(t, content, updated.Content)
	assert.NotEmpty(t, updated.Modified)

	// The journal listing shows the one journal.
	var journals []store.Journal
	resp = doJSON(t, http.MethodGet, srv.URL+"/journals", token, nil, &journals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, journals, 1)
	assert.Equal(t, journal.ID, journals[0].ID)

	// Deleting the account cascades to its journals.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/user/"+created.ID, token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/login", "",
		store.LoginRequest{Username: "alice", Keyphrase: "wonderland"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIRejectsMissingOrBadToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/journals", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/journals", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIUsersCannotTouchEachOthersJournals(t *testing.T) {
	srv := newTestServer(t)

	register := func(username string) string {
		resp := doJSON(t, http.MethodPost, srv.URL+"/new/user", "",
			store.UserCreate{Username: username, Keyphrase: "pw"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var login store.LoginResponse
		resp = doJSON(t, http.MethodPost, srv.URL+"/login", "",
			store.LoginRequest{Username: username, Keyphrase: "pw"}, &login)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return login.Token
	}

	alice := register("alice")
	bob := register("bob")

	var journal store.Journal
	resp := doJSON(t, http.MethodPost, srv.URL+"/new/journal", alice,
		store.JournalCreate{Title: "Secret"}, &journal)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Other users see a plain 404, not a permission hint.
	resp = doJSON(t, http.MethodGet, srv.URL+"/journal/"+journal.ID, bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/journal/"+journal.ID, bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/journal/"+journal.ID, alice, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIEntriesCollection(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/new/user", "",
		store.UserCreate{Username: "alice", Keyphrase: "pw"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login store.LoginResponse
	resp = doJSON(t, http.MethodPost, srv.URL+"/login", "",
		store.LoginRequest{Username: "alice", Keyphrase: "pw"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := login.Token

	var entry store.Note
	resp = doJSON(t, http.MethodPost, srv.URL+"/entries", token,
		store.NoteCreate{Title: "Loose thought", Content: "Standalone"}, &entry)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []store.Note
	resp = doJSON(t, http.MethodGet, srv.URL+"/entries", token, nil, &entries)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/entries/"+entry.ID, token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/entries", token, nil, &entries)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, entries)
}
