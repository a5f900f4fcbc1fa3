package rest

import (
	"errors"
	"net/http"

	"github.com/mitchellh/mapstructure"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/httputil"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/store"
)

// decodeDashboard accepts loosely typed client payloads: numeric strings for
// grid coordinates, numbers where strings belong. Weak decoding smooths over
// what different frontend versions send.
func decodeDashboard(r *http.Request, w http.ResponseWriter) (*store.Dashboard, bool) {
	var body map[string]any
	if err := httputil.BindOrError(r, w, &body); err != nil {
		return nil, false
	}

	var d store.Dashboard
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &d,
		WeaklyTypedInput: true,
	})
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if err := dec.Decode(body); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &d, true
}

func (s *Server) handleDashboardCreate(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDashboard(r, w)
	if !ok {
		return
	}
	d.Owner = owner(r, d.Owner)

	saved, err := s.dashboards.Save(d)
	if err != nil {
		if errors.Is(err, store.ErrInvalidID) {
			httputil.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.JSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDashboardList(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, s.dashboards.List())
}

func (s *Server) handleDashboardGet(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Get(r.PathValue("id"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "dashboard not found")
		return
	}
	httputil.JSON(w, http.StatusOK, d)
}

func (s *Server) handleDashboardUpdate(w http.ResponseWriter, r *http.Request) {
	upd, ok := decodeDashboard(r, w)
	if !ok {
		return
	}

	d, err := s.dashboards.Update(r.PathValue("id"), owner(r, upd.Owner), upd)
	if err != nil {
		writeDashboardError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, d)
}

func (s *Server) handleDashboardDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboards.Delete(r.PathValue("id"), owner(r, "")); err != nil {
		writeDashboardError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type publishDashboardRequest struct {
	Owner    string `json:"owner"`
	Password string `json:"password"`
}

func (s *Server) handleDashboardPublish(w http.ResponseWriter, r *http.Request) {
	var req publishDashboardRequest
	if r.ContentLength > 0 {
		if err := httputil.BindOrError(r, w, &req); err != nil {
			return
		}
	}

	snapshot, err := s.dashboards.Publish(r.PathValue("id"), owner(r, req.Owner), req.Password)
	if err != nil {
		writeDashboardError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleDashboardUnpublish(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboards.Unpublish(r.PathValue("id"), owner(r, "")); err != nil {
		writeDashboardError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "unpublished"})
}

func (s *Server) handleSharedGet(w http.ResponseWriter, r *http.Request) {
	sd, err := s.dashboards.GetShared(r.PathValue("shareableId"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "shared dashboard not found")
		return
	}
	if sd.PasswordProtected {
		// Expose only the lock, not the snapshot.
		httputil.JSON(w, http.StatusUnauthorized, map[string]any{
			"shareableId":       sd.ShareableID,
			"name":              sd.Name,
			"passwordProtected": true,
		})
		return
	}
	httputil.JSON(w, http.StatusOK, sd)
}

type accessSharedRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleSharedAccess(w http.ResponseWriter, r *http.Request) {
	var req accessSharedRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}

	sd, err := s.dashboards.AccessShared(r.PathValue("shareableId"), req.Password)
	if err != nil {
		if errors.Is(err, store.ErrWrongPassword) {
			httputil.Error(w, http.StatusForbidden, "wrong password")
			return
		}
		httputil.Error(w, http.StatusNotFound, "shared dashboard not found")
		return
	}
	httputil.JSON(w, http.StatusOK, sd)
}

func writeDashboardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.Error(w, http.StatusNotFound, "dashboard not found")
	case errors.Is(err, store.ErrForbidden):
		httputil.Error(w, http.StatusForbidden, "not the dashboard owner")
	default:
		httputil.Error(w, http.StatusInternalServerError, err.Error())
	}
}
