package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/httputil"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/store"
)

type createSessionRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := httputil.BindOrError(r, w, &req); err != nil {
			return
		}
	}

	now := time.Now()
	sess := store.Session{
		ID:        uuid.NewString(),
		Email:     req.Email,
		CreatedAt: now,
		LastSeen:  now,
	}
	s.store.Sessions.Set(sess.ID, sess)
	httputil.JSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.store.Sessions.Get(id)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "session not found")
		return
	}

	// A read is a heartbeat.
	sess.LastSeen = time.Now()
	s.store.Sessions.Set(id, sess)
	httputil.JSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if !s.store.Sessions.Delete(r.PathValue("id")) {
		httputil.Error(w, http.StatusNotFound, "session not found")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
