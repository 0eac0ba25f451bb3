package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloudscribe/middleware"
	"cloudscribe/pkg/logger"
	"cloudscribe/scribedb"
	"cloudscribe/store"

	"github.com/google/uuid"
)

const tokenTTL = 24 * time.Hour

// ScribeHandler holds the thin HTTP layer over the document cache. All
// business rules live in scribedb; handlers only decode, dispatch, and map
// typed errors to status codes.
type ScribeHandler struct {
	DB        *scribedb.ScribeDB
	JWTSecret string
}

func NewScribeHandler(db *scribedb.ScribeDB, jwtSecret string) *ScribeHandler {
	return &ScribeHandler{DB: db, JWTSecret: jwtSecret}
}

func (h *ScribeHandler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the CloudScribe API."})
}

// Login verifies a username/keyphrase pair and issues a Bearer token.
func (h *ScribeHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req store.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.DB.RetrieveUserByUsername(req.Username)
	if err != nil || user.Keyphrase != req.Keyphrase {
		http.Error(w, "Unauthorized user.", http.StatusUnauthorized)
		return
	}

	token, err := middleware.IssueToken(h.JWTSecret, user.ID, tokenTTL)
	if err != nil {
		logger.Sugar.Errorf("Failed to sign token: %v", err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, store.LoginResponse{Token: token, User: user.Desensitised()})
}

// CreateUser registers a new user. Usernames must be unique.
func (h *ScribeHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req store.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Keyphrase == "" {
		http.Error(w, "Username and keyphrase are required", http.StatusBadRequest)
		return
	}

	if _, err := h.DB.RetrieveUserByUsername(req.Username); err == nil {
		http.Error(w, "Username already exists.", http.StatusConflict)
		return
	}

	user := store.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Keyphrase: req.Keyphrase,
		Created:   store.Timestamp(),
	}
	if err := h.DB.SaveUser(r.Context(), user); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Desensitised())
}

func (h *ScribeHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, user.Desensitised())
}

func (h *ScribeHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req store.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username != nil && *req.Username != user.Username {
		if _, err := h.DB.RetrieveUserByUsername(*req.Username); err == nil {
			http.Error(w, "Username already exists.", http.StatusConflict)
			return
		}
	}

	if user.Update(req) {
		if err := h.DB.SaveUser(r.Context(), *user); err != nil {
			h.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, user.Desensitised())
}

func (h *ScribeHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if err := h.DB.DeleteUser(r.Context(), user.ID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.StatusUpdate{Status: "User deleted successfully."})
}

func (h *ScribeHandler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req store.JournalCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	journal := store.Journal{
		ID:          uuid.NewString(),
		AuthorID:    user.ID,
		Title:       req.Title,
		Description: req.Description,
		Created:     store.Timestamp(),
		Notes:       []store.Note{},
	}
	if err := h.DB.SaveJournal(r.Context(), journal); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, journal)
}

func (h *ScribeHandler) GetJournals(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	journals, err := h.DB.JournalsOwnedBy(user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if journals == nil {
		journals = []store.Journal{}
	}
	writeJSON(w, http.StatusOK, journals)
}

func (h *ScribeHandler) GetJournal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	journal, err := h.DB.RetrieveJournalOwnedBy(r.PathValue("journalID"), user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, journal)
}

func (h *ScribeHandler) UpdateJournal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req store.JournalUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	journal, err := h.DB.RetrieveJournalOwnedBy(r.PathValue("journalID"), user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if journal.Update(req) {
		if err := h.DB.SaveJournal(r.Context(), *journal); err != nil {
			h.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, journal)
}

func (h *ScribeHandler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if err := h.DB.DeleteJournal(r.Context(), r.PathValue("journalID"), user.ID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.StatusUpdate{Status: "Journal deleted successfully."})
}

func (h *ScribeHandler) GetJournalNotes(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	journal, err := h.DB.RetrieveJournalOwnedBy(r.PathValue("journalID"), user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	notes := journal.Notes
	if notes == nil {
		notes = []store.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *ScribeHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req store.NoteCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	note := store.Note{
		ID:      uuid.NewString(),
		Title:   req.Title,
		Content: req.Content,
		Created: store.Timestamp(),
		Tags:    req.Tags,
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	if err := h.DB.SaveNote(r.Context(), note, req.JournalID, user.ID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *ScribeHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	journalID := r.PathValue("journalID")

	if _, err := h.DB.RetrieveJournalOwnedBy(journalID, user.ID); err != nil {
		h.writeError(w, err)
		return
	}
	note, err := h.DB.RetrieveNoteWithin(journalID, r.PathValue("noteID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *ScribeHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	journalID := r.PathValue("journalID")

	var req store.NoteUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := h.DB.RetrieveJournalOwnedBy(journalID, user.ID); err != nil {
		h.writeError(w, err)
		return
	}
	note, err := h.DB.RetrieveNoteWithin(journalID, r.PathValue("noteID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if note.Update(req) {
		if err := h.DB.SaveNote(r.Context(), *note, journalID, user.ID); err != nil {
			h.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *ScribeHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	err := h.DB.DeleteNote(r.Context(), r.PathValue("journalID"), r.PathValue("noteID"), user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.StatusUpdate{Status: "Note deleted successfully."})
}

// GetEntries serves the standalone notes collection.
func (h *ScribeHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	notes, err := h.DB.LoadEntries()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *ScribeHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req store.NoteCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	note := store.Note{
		ID:      uuid.NewString(),
		Title:   req.Title,
		Content: req.Content,
		Created: store.Timestamp(),
		Tags:    req.Tags,
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	if err := h.DB.SaveEntry(r.Context(), note); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *ScribeHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.DeleteEntry(r.Context(), r.PathValue("noteID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.StatusUpdate{Status: "Note deleted successfully."})
}

func (h *ScribeHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scribedb.ErrNotFound), errors.Is(err, scribedb.ErrUnauthorized):
		http.Error(w, "Not found.", http.StatusNotFound)
	case errors.Is(err, scribedb.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, scribedb.ErrNotOperational):
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, scribedb.ErrTransport):
		logger.Sugar.Errorf("Remote store failure: %v", err)
		http.Error(w, "Remote store failure", http.StatusBadGateway)
	default:
		logger.Sugar.Errorf("Unhandled error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
