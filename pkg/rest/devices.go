package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/httputil"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/store"
)

type createDeviceRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Topic string `json:"topic"`
	Owner string `json:"owner"`
}

func (s *Server) handleDeviceCreate(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if req.Name == "" {
		httputil.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	dev := &store.Device{
		ID:       req.ID,
		Name:     req.Name,
		Topic:    req.Topic,
		Owner:    owner(r, req.Owner),
		LastSeen: time.Now(),
	}
	s.store.Devices.Set(dev.ID, dev)
	httputil.JSON(w, http.StatusCreated, dev)
}

func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	out := make([]*store.Device, 0, s.store.Devices.Len())
	s.store.Devices.Range(func(_ string, d *store.Device) bool {
		out = append(out, d)
		return true
	})
	httputil.JSON(w, http.StatusOK, out)
}

func (s *Server) handleDeviceGet(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.store.Devices.Get(r.PathValue("id"))
	if !ok {
		httputil.Error(w, http.StatusNotFound, "device not found")
		return
	}
	httputil.JSON(w, http.StatusOK, dev)
}

func (s *Server) handleDeviceDelete(w http.ResponseWriter, r *http.Request) {
	if !s.store.Devices.Delete(r.PathValue("id")) {
		httputil.Error(w, http.StatusNotFound, "device not found")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
