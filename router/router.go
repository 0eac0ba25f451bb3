package router

import (
	"net/http"

	"cloudscribe/handler"
	"cloudscribe/middleware"
	"cloudscribe/pkg/metrics"
	"cloudscribe/scribedb"
)

func Setup(db *scribedb.ScribeDB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	h := handler.NewScribeHandler(db, jwtSecret)
	auth := func(hf http.HandlerFunc) http.Handler {
		return middleware.Auth(db, jwtSecret, hf)
	}

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /new/user", h.CreateUser)

	mux.Handle("POST /new/journal", auth(h.CreateJournal))
	mux.Handle("POST /new/note", auth(h.CreateNote))

	mux.Handle("GET /user/{userID}", auth(h.GetUser))
	mux.Handle("PUT /user/{userID}", auth(h.UpdateUser))
	mux.Handle("DELETE /user/{userID}", auth(h.DeleteUser))

	mux.Handle("GET /journals", auth(h.GetJournals))
	mux.Handle("GET /journal/{journalID}", auth(h.GetJournal))
	mux.Handle("PUT /journal/{journalID}", auth(h.UpdateJournal))
	mux.Handle("DELETE /journal/{journalID}", auth(h.DeleteJournal))
	mux.Handle("GET /journal/{journalID}/notes", auth(h.GetJournalNotes))

	mux.Handle("GET /journal/{journalID}/note/{noteID}", auth(h.GetNote))
	mux.Handle("PUT /journal/{journalID}/note/{noteID}", auth(h.UpdateNote))
	mux.Handle("DELETE /journal/{journalID}/note/{noteID}", auth(h.DeleteNote))

	mux.Handle("GET /entries", auth(h.GetEntries))
	mux.Handle("POST /entries", auth(h.CreateEntry))
	mux.Handle("DELETE /entries/{noteID}", auth(h.DeleteEntry))

	mux.Handle("GET /metrics", metrics.Handler())

	return middleware.CORSMiddleware(mux)
}
