package scribedb

import (
	"context"
	"fmt"
	"sort"

	"cloudscribe/store"
)

// Journals returns every journal from a point-in-time snapshot.
func (s *ScribeDB) Journals() ([]store.Journal, error) {
	if !s.IsOperational() {
		return nil, ErrNotOperational
	}

	snap := s.snapshot()
	journals := make([]store.Journal, 0, len(snap.Journals))
	for _, j := range snap.Journals {
		journals = append(journals, j)
	}
	sortJournals(journals)
	return journals, nil
}

// JournalsOwnedBy returns the journals authored by the given user.
func (s *ScribeDB) JournalsOwnedBy(ownerID string) ([]store.Journal, error) {
	if !s.IsOperational() {
		return nil, ErrNotOperational
	}

	snap := s.snapshot()
	var journals []store.Journal
	for _, j := range snap.Journals {
		if j.AuthorID == ownerID {
			journals = append(journals, j)
		}
	}
	sortJournals(journals)
	return journals, nil
}

// RetrieveJournal is the unauthenticated lookup.
func (s *ScribeDB) RetrieveJournal(id string) (*store.Journal, error) {
	if !s.IsOperational() {
		return nil, ErrNotOperational
	}

	snap := s.snapshot()
	if j, ok := snap.Journals[id]; ok {
		return &j, nil
	}
	return nil, fmt.Errorf("%w: journal %s", ErrNotFound, id)
}

// RetrieveJournalOwnedBy is the owner-scoped lookup: a journal authored by
// someone else is reported as unauthorized, which callers translate to a
// not-found response.
func (s *ScribeDB) RetrieveJournalOwnedBy(id, ownerID string) (*store.Journal, error) {
	j, err := s.RetrieveJournal(id)
	if err != nil {
		return nil, err
	}
	if j.AuthorID != ownerID {
		return nil, fmt.Errorf("%w: journal %s is not owned by %s", ErrUnauthorized, id, ownerID)
	}
	return j, nil
}

// SaveJournal upserts a journal by ID. The author must resolve to an
// existing user at save time; a violation is rejected and the document is
// left unchanged.
func (s *ScribeDB) SaveJournal(ctx context.Context, journal store.Journal) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		if _, ok := doc.Users[journal.AuthorID]; !ok {
			return fmt.Errorf("%w: journal author %s does not exist", ErrValidation, journal.AuthorID)
		}
		if journal.Notes == nil {
			journal.Notes = []store.Note{}
		}
		doc.Journals[journal.ID] = journal
		return nil
	})
}

// DeleteJournal removes an owner's journal.
func (s *ScribeDB) DeleteJournal(ctx context.Context, id, ownerID string) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		j, ok := doc.Journals[id]
		if !ok {
			return fmt.Errorf("%w: journal %s", ErrNotFound, id)
		}
		if j.AuthorID != ownerID {
			return fmt.Errorf("%w: journal %s is not owned by %s", ErrUnauthorized, id, ownerID)
		}
		delete(doc.Journals, id)
		return nil
	})
}

func sortJournals(journals []store.Journal) {
	sort.Slice(journals, func(i, j int) bool {
		if journals[i].Created != journals[j].Created {
			return journals[i].Created < journals[j].Created
		}
		return journals[i].ID < journals[j].ID
	})
}
