package store

import "time"

// Document is the single synchronized root object. It round-trips through
// the remote store as JSON with no information loss; every mutation replaces
// it wholesale, so a Document value handed out is never mutated in place.
type Document struct {
	Users    map[string]User    `json:"users"`
	Journals map[string]Journal `json:"journals"`
	Notes    map[string]Note    `json:"notes"`
}

func NewDocument() *Document {
	return &Document{
		Users:    make(map[string]User),
		Journals: make(map[string]Journal),
		Notes:    make(map[string]Note),
	}
}

// Clone returns a deep copy. Callers mutate the copy and write it back;
// the original stays untouched if the write fails.
func (d *Document) Clone() *Document {
	out := NewDocument()
	for id, u := range d.Users {
		out.Users[id] = u
	}
	for id, j := range d.Journals {
		out.Journals[id] = j.clone()
	}
	for id, n := range d.Notes {
		out.Notes[id] = n.clone()
	}
	return out
}

func (j Journal) clone() Journal {
	if j.Notes != nil {
		notes := make([]Note, len(j.Notes))
		for i, n := range j.Notes {
			notes[i] = n.clone()
		}
		j.Notes = notes
	}
	return j
}

func (n Note) clone() Note {
	if n.Tags != nil {
		n.Tags = append([]string(nil), n.Tags...)
	}
	return n
}

// Normalize makes sure all three collections are non-nil after a remote
// read; a freshly provisioned fragment starts out as an empty object.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = make(map[string]User)
	}
	if d.Journals == nil {
		d.Journals = make(map[string]Journal)
	}
	if d.Notes == nil {
		d.Notes = make(map[string]Note)
	}
}

// Timestamp returns the canonical creation/modification timestamp.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
