package scribedb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloudscribe/pkg/logger"
	"cloudscribe/store"
)

// approvalPollInterval is how often provisioning re-reads the fragment
// while waiting for the account holder to approve the request.
var approvalPollInterval = 5 * time.Second

// provision runs the first-run handshake: validate the configured secret,
// file a fragment request with the remote store, then poll reads until the
// request is approved remotely. The resulting credentials are persisted so
// later startups skip this path entirely. The caller's context bounds how
// long we wait for approval.
func (s *ScribeDB) provision(ctx context.Context) (*store.Document, error) {
	secret := strings.TrimSpace(s.cfg.SecretKey)
	if secret == "" {
		return nil, fmt.Errorf("%w: secret key cannot be empty", ErrConfiguration)
	}

	creds := s.remote.Credentials()
	creds.Secret = secret
	s.remote.SetCredentials(creds)

	reason := fmt.Sprintf("Database storage for Scribe server. Request made: %s", store.Timestamp())
	if err := s.remote.Request(ctx, reason); err != nil {
		return nil, fmt.Errorf("%w: fragment request: %v", ErrTransport, err)
	}
	logger.Sugar.Info("SCRIBEDB SETUP: Fragment request filed, awaiting remote approval.")

	doc, err := s.awaitApproval(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.saveCredentials(s.remote.Credentials()); err != nil {
		return nil, err
	}
	return doc, nil
}

// awaitApproval polls the fragment until a read succeeds. A read failure
// here normally just means "not approved yet", so we keep polling until
// the context expires.
func (s *ScribeDB) awaitApproval(ctx context.Context) (*store.Document, error) {
	ticker := time.NewTicker(approvalPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		doc, err := s.remote.Read(ctx)
		if err == nil {
			logger.Sugar.Info("SCRIBEDB SETUP: Fragment request approved.")
			return doc, nil
		}
		lastErr = err
		logger.Sugar.Debugf("SCRIBEDB SETUP: Fragment not readable yet: %v", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: approval not granted: %v", ErrConfiguration, lastErr)
		case <-ticker.C:
		}
	}
}
