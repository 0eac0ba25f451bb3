package scribedb

import (
	"context"
	"fmt"
	"sort"

	"cloudscribe/store"
)

// Users returns every user from a point-in-time snapshot, ordered by
// creation time for stable listings.
func (s *ScribeDB) Users() ([]store.User, error) {
	if !s.IsOperational() {
		return nil, ErrNotOperational
	}

	snap := s.snapshot()
	users := make([]store.User, 0, len(snap.Users))
	for _, u := range snap.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Created != users[j].Created {
			return users[i].Created < users[j].Created
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *ScribeDB) RetrieveUser(id string) (*store.User, error) {
	if !s.IsOperational() {
		return nil, ErrNotOperational
	}

	snap := s.snapshot()
	if u, ok := snap.Users[id]; ok {
		return &u, nil
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
}

func (s *ScribeDB) RetrieveUserByUsername(username string) (*store.User, error) {
	if !s.IsOperational() {
		return nil, ErrNotOperational
	}

	snap := s.snapshot()
	for _, u := range snap.Users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: username %s", ErrNotFound, username)
}

// SaveUser upserts a user by ID. Usernames must stay unique across users.
func (s *ScribeDB) SaveUser(ctx context.Context, user store.User) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		for id, u := range doc.Users {
			if id != user.ID && u.Username == user.Username {
				return fmt.Errorf("%w: username %s already exists", ErrValidation, user.Username)
			}
		}
		doc.Users[user.ID] = user
		return nil
	})
}

// DeleteUser removes a user and cascades to every journal they authored.
func (s *ScribeDB) DeleteUser(ctx context.Context, id string) error {
	return s.mutate(ctx, func(doc *store.Document) error {
		if _, ok := doc.Users[id]; !ok {
			return fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		delete(doc.Users, id)
		for jid, j := range doc.Journals {
			if j.AuthorID == id {
				delete(doc.Journals, jid)
			}
		}
		return nil
	})
}
