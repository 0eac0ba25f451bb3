// Package scribedb is the synchronization core: it owns the single
// in-memory Document, keeps it read-through/write-through against the
// remote fragment store, and refreshes it periodically through a
// background processor. Records are never stored locally in durable form;
// the only artifact on disk is the credentials file.
package scribedb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloudscribe/config"
	"cloudscribe/pkg/logger"
	"cloudscribe/pkg/metrics"
	"cloudscribe/scheduler"
	"cloudscribe/store"
)

// settleDelay absorbs asynchronous server-side propagation after each
// stream exchange before the stream lock is released.
var settleDelay = 500 * time.Millisecond

// streamLogFile receives the stream exchange history on shutdown when
// diagnostics are enabled.
var streamLogFile = "ScribeDBStreamLog.txt"

// Remote is the narrow surface of the remote document store the cache
// consumes. *fragment.Client implements it.
type Remote interface {
	Request(ctx context.Context, reason string) error
	Read(ctx context.Context) (*store.Document, error)
	Write(ctx context.Context, doc *store.Document) error
	InitStream(ctx context.Context) error
	ReadStream(ctx context.Context) (*store.Document, error)
	WriteStream(ctx context.Context, doc *store.Document) error
	Disconnect()
	Connected() bool
	History() []string
	Credentials() store.Credentials
	SetCredentials(store.Credentials)
}

type state int

const (
	stateUninitialized state = iota
	stateOperational
	stateShutDown
)

// ScribeDB gates all document access behind the operational flag and
// serializes every snapshot→mutate→write cycle under one mutation lock,
// so two racing mutations can never lose each other's update.
type ScribeDB struct {
	remote   Remote
	cfg      config.Config
	registry *scheduler.Registry

	mu  sync.Mutex // document mutation lock, held across the full write cycle
	doc *store.Document

	streamMu sync.Mutex // serializes the persistent connection in WS mode

	stateMu    sync.Mutex
	state      state
	refreshJob string
}

func New(remote Remote, cfg config.Config, registry *scheduler.Registry) *ScribeDB {
	return &ScribeDB{remote: remote, cfg: cfg, registry: registry}
}

func (s *ScribeDB) IsOperational() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state == stateOperational
}

func (s *ScribeDB) streaming() bool {
	return s.cfg.Mode == config.ModeWS
}

// Setup brings the cache to the Operational state: load or provision
// credentials, perform the initial read, initialize the stream in WS mode,
// and schedule the periodic refresh on the default processor. Any failure
// here is fatal to startup.
func (s *ScribeDB) Setup(ctx context.Context) error {
	s.stateMu.Lock()
	if s.state != stateUninitialized {
		s.stateMu.Unlock()
		return fmt.Errorf("%w: setup already ran", ErrConfiguration)
	}
	s.stateMu.Unlock()

	doc, err := s.connect(ctx)
	if err != nil {
		return err
	}
	logger.Sugar.Info("SCRIBEDB SETUP: DB read successful.")

	if s.streaming() {
		if err := s.remote.InitStream(ctx); err != nil {
			return fmt.Errorf("%w: stream init: %v", ErrTransport, err)
		}
		logger.Sugar.Info("SCRIBEDB SETUP: Fragment stream initialized.")
	}

	proc := s.registry.Default()
	if proc == nil {
		return fmt.Errorf("%w: default processor not initialised", ErrConfiguration)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.stateMu.Lock()
	s.state = stateOperational
	s.stateMu.Unlock()
	jobID, err := proc.Submit(s.liveReader, scheduler.Every(s.cfg.RefreshInterval))
	if err != nil {
		return fmt.Errorf("%w: schedule refresh: %v", ErrConfiguration, err)
	}
	s.stateMu.Lock()
	s.refreshJob = jobID
	s.stateMu.Unlock()

	return nil
}

// connect loads persisted credentials, or runs first-run provisioning when
// the credentials file does not exist yet. Either way it ends with a
// successful initial read.
func (s *ScribeDB) connect(ctx context.Context) (*store.Document, error) {
	if _, err := os.Stat(s.cfg.CredentialsFile); os.IsNotExist(err) {
		return s.provision(ctx)
	}

	creds, err := s.loadCredentials()
	if err != nil {
		return nil, err
	}
	s.remote.SetCredentials(creds)

	doc, err := s.remote.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: initial read: %v", ErrTransport, err)
	}
	return doc, nil
}

// liveReader is the periodic refresh job. Failures are logged and retried
// on the next tick; they must never take the processor down.
func (s *ScribeDB) liveReader() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Refresh(ctx); err != nil {
		metrics.RefreshTicks.WithLabelValues("error").Inc()
		return fmt.Errorf("SCRIBEDB LIVE_READER: %w", err)
	}
	metrics.RefreshTicks.WithLabelValues("ok").Inc()
	return nil
}

// Refresh pulls the latest remote document into the local copy. It takes
// the same mutation lock as writers so a refresh never interleaves with an
// in-flight write.
func (s *ScribeDB) Refresh(ctx context.Context) error {
	if !s.IsOperational() {
		return ErrNotOperational
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readRemote(ctx)
	if err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Write pushes a document to the remote store, defaulting to the current
// local copy. On success the pushed document becomes the local copy.
func (s *ScribeDB) Write(ctx context.Context, doc *store.Document) error {
	if !s.IsOperational() {
		return ErrNotOperational
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc == nil {
		doc = s.doc
	}
	if err := s.writeRemote(ctx, doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Read refreshes and returns a deep-copied snapshot.
func (s *ScribeDB) Read(ctx context.Context) (*store.Document, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

// snapshot returns a deep copy of the current document. The document is
// only ever replaced wholesale, so cloning outside the mutation lock is
// safe once the pointer has been captured under it.
func (s *ScribeDB) snapshot() *store.Document {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	return doc.Clone()
}

// mutate runs the full snapshot→mutate→write cycle under the mutation
// lock. The local copy only advances when the remote write succeeded, so a
// rejected write leaves the document unchanged.
func (s *ScribeDB) mutate(ctx context.Context, fn func(doc *store.Document) error) error {
	if !s.IsOperational() {
		return ErrNotOperational
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.doc.Clone()
	if err := fn(snap); err != nil {
		return err
	}
	if err := s.writeRemote(ctx, snap); err != nil {
		return err
	}
	s.doc = snap
	return nil
}

func (s *ScribeDB) readRemote(ctx context.Context) (*store.Document, error) {
	var doc *store.Document
	var err error
	if s.streaming() {
		s.streamMu.Lock()
		doc, err = s.remote.ReadStream(ctx)
		if err == nil {
			time.Sleep(settleDelay)
		}
		s.streamMu.Unlock()
	} else {
		doc, err = s.remote.Read(ctx)
	}

	if err != nil {
		metrics.RemoteReads.WithLabelValues(s.cfg.Mode, "error").Inc()
		return nil, fmt.Errorf("%w: read: %v", ErrTransport, err)
	}
	metrics.RemoteReads.WithLabelValues(s.cfg.Mode, "ok").Inc()
	return doc, nil
}

func (s *ScribeDB) writeRemote(ctx context.Context, doc *store.Document) error {
	var err error
	if s.streaming() {
		s.streamMu.Lock()
		err = s.remote.WriteStream(ctx, doc)
		if err == nil {
			time.Sleep(settleDelay)
		}
		s.streamMu.Unlock()
	} else {
		err = s.remote.Write(ctx, doc)
	}

	if err != nil {
		metrics.RemoteWrites.WithLabelValues(s.cfg.Mode, "error").Inc()
		return fmt.Errorf("%w: write: %v", ErrTransport, err)
	}
	metrics.RemoteWrites.WithLabelValues(s.cfg.Mode, "ok").Inc()
	return nil
}

// Shutdown discards the in-memory document (the remote copy is left alone)
// and, in WS mode, disconnects the stream. When diagnostics are enabled the
// stream exchange history is flushed to a log artifact. Idempotent.
func (s *ScribeDB) Shutdown() {
	s.stateMu.Lock()
	if s.state != stateOperational {
		s.stateMu.Unlock()
		return
	}
	s.state = stateShutDown
	refreshJob := s.refreshJob
	s.stateMu.Unlock()

	if proc := s.registry.Default(); proc != nil && refreshJob != "" {
		proc.Remove(refreshJob)
	}

	if s.streaming() && s.remote.Connected() {
		history := s.remote.History()
		s.remote.Disconnect()

		if s.cfg.DebugMode {
			if err := os.WriteFile(streamLogFile, []byte(strings.Join(history, "\n")), 0o644); err != nil {
				logger.Sugar.Errorf("SCRIBEDB SHUTDOWN: Failed to flush stream history: %v", err)
			}
		}
		logger.Sugar.Info("SCRIBEDB SHUTDOWN: Fragment stream disconnected.")
	}
}

func (s *ScribeDB) loadCredentials() (store.Credentials, error) {
	var creds store.Credentials
	raw, err := os.ReadFile(s.cfg.CredentialsFile)
	if err != nil {
		return creds, fmt.Errorf("%w: read credentials: %v", ErrConfiguration, err)
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("%w: parse credentials: %v", ErrConfiguration, err)
	}
	if creds.FragmentID == "" || creds.Secret == "" {
		return creds, fmt.Errorf("%w: credentials file is incomplete", ErrConfiguration)
	}
	return creds, nil
}

func (s *ScribeDB) saveCredentials(creds store.Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("%w: encode credentials: %v", ErrConfiguration, err)
	}
	if err := os.WriteFile(s.cfg.CredentialsFile, raw, 0o600); err != nil {
		return fmt.Errorf("%w: persist credentials: %v", ErrConfiguration, err)
	}
	return nil
}
