package scribedb

import (
	"context"
	"fmt"
	"sort"

	"cloudscribe/store"
)

// RetrieveNoteWithin looks a note up inside its owning journal.
func (s *ScribeDB) RetrieveNoteWithin(journalID, noteID string) (*store.Note, error) {
	j, err := s.RetrieveJournal(journalID)
	if err != nil {
		return nil, err
	}
	for i := range j.Notes {
		if j.Notes[i].ID == noteID {
			return &j.Notes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: note %s in journal %s", ErrNotFound, noteID, journalID)
}

// SaveNote upserts a note by ID into its journal's ordered sequence. When
// ownerID is non-empty the journal lookup is owner-scoped; note order is
// preserved on update, and new notes append at the end.
func (s *ScribeDB) SaveNote(ctx context.Context, note store.Note, journalID, ownerID string) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		j, ok := doc.Journals[journalID]
		if !ok {
			return fmt.Errorf("%w: journal %s", ErrNotFound, journalID)
		}
		if ownerID != "" && j.AuthorID != ownerID {
			return fmt.Errorf("%w: journal %s is not owned by %s", ErrUnauthorized, journalID, ownerID)
		}

		replaced := false
		for i := range j.Notes {
			if j.Notes[i].ID == note.ID {
				j.Notes[i] = note
				replaced = true
				break
			}
		}
		if !replaced {
			j.Notes = append(j.Notes, note)
		}
		doc.Journals[journalID] = j
		return nil
	})
}

// DeleteNote removes a note from its journal's sequence.
func (s *ScribeDB) DeleteNote(ctx context.Context, journalID, noteID, ownerID string) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		j, ok := doc.Journals[journalID]
		if !ok {
			return fmt.Errorf("%w: journal %s", ErrNotFound, journalID)
		}
		if ownerID != "" && j.AuthorID != ownerID {
			return fmt.Errorf("%w: journal %s is not owned by %s", ErrUnauthorized, journalID, ownerID)
		}
		for i := range j.Notes {
			if j.Notes[i].ID == noteID {
				j.Notes = append(j.Notes[:i], j.Notes[i+1:]...)
				doc.Journals[journalID] = j
				return nil
			}
		}
		return fmt.Errorf("%w: note %s in journal %s", ErrNotFound, noteID, journalID)
	})
}

// LoadEntries returns the standalone notes collection, the journal-less
// notes kept at the top level of the document.
func (s *ScribeDB) LoadEntries() ([]store.Note, error) {
	if !s.IsOperational() {
		return nil, ErrNotOperational
	}

	snap := s.snapshot()
	notes := make([]store.Note, 0, len(snap.Notes))
	for _, n := range snap.Notes {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Created != notes[j].Created {
			return notes[i].Created < notes[j].Created
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

// SaveEntry upserts a standalone note by ID.
func (s *ScribeDB) SaveEntry(ctx context.Context, note store.Note) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		doc.Notes[note.ID] = note
		return nil
	})
}

// DeleteEntry removes a standalone note. Deleting an absent entry is not
// an error; the write still happens, matching the remote copy wholesale.
func (s *ScribeDB) DeleteEntry(ctx context.Context, id string) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		delete(doc.Notes, id)
		return nil
	})
}
