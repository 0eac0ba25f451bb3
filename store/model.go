package store

// User owns journals. The keyphrase doubles as the login credential and
// must never leave the server; responses carry UserInfo instead.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Keyphrase string `json:"keyphrase"`
	Created   string `json:"created"`
	Modified  string `json:"modified,omitempty"`
}

// UserInfo is the desensitised view of a User.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Created  string `json:"created"`
	Modified string `json:"modified,omitempty"`
}

func (u User) Desensitised() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Created: u.Created, Modified: u.Modified}
}

type Journal struct {
	ID          string `json:"id"`
	AuthorID    string `json:"authorID"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Created     string `json:"created"`
	Modified    string `json:"modified,omitempty"`
	Notes       []Note `json:"notes"`
}

type Note struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Created  string   `json:"created"`
	Modified string   `json:"modified,omitempty"`
	Tags     []string `json:"tags"`
}

// Credentials is the persisted artifact from first-run provisioning.
type Credentials struct {
	FragmentID string `json:"fragID"`
	Secret     string `json:"secret"`
	APIKey     string `json:"apiKey"`
}

// --- API request types ---

type UserCreate struct {
	Username  string `json:"username"`
	Keyphrase string `json:"keyphrase"`
}

type UserUpdate struct {
	Username  *string `json:"username,omitempty"`
	Keyphrase *string `json:"keyphrase,omitempty"`
}

type JournalCreate struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type JournalUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type NoteCreate struct {
	JournalID string   `json:"journal_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
}

type NoteUpdate struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

type LoginRequest struct {
	Username  string `json:"username"`
	Keyphrase string `json:"keyphrase"`
}

type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type StatusUpdate struct {
	Status string `json:"status"`
}

// Update applies non-nil fields and stamps Modified when anything changed.
func (u *User) Update(info UserUpdate) bool {
	changed := false
	if info.Username != nil && *info.Username != u.Username {
		u.Username = *info.Username
		changed = true
	}
	if info.Keyphrase != nil && *info.Keyphrase != u.Keyphrase {
		u.Keyphrase = *info.Keyphrase
		changed = true
	}
	if changed {
		u.Modified = Timestamp()
	}
	return changed
}

func (j *Journal) Update(info JournalUpdate) bool {
	changed := false
	if info.Title != nil && *info.Title != j.Title {
		j.Title = *info.Title
		changed = true
	}
	if info.Description != nil && *info.Description != j.Description {
		j.Description = *info.Description
		changed = true
	}
	if changed {
		j.Modified = Timestamp()
	}
	return changed
}

func (n *Note) Update(info NoteUpdate) bool {
	changed := false
	if info.Title != nil && *info.Title != n.Title {
		n.Title = *info.Title
		changed = true
	}
	if info.Content != nil && *info.Content != n.Content {
		n.Content = *info.Content
		changed = true
	}
	if info.Tags != nil {
		n.Tags = append([]string(nil), (*info.Tags)...)
		changed = true
	}
	if changed {
		n.Modified = Timestamp()
	}
	return changed
}
