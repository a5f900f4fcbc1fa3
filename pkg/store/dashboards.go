package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/topicid"
)

var (
	// ErrInvalidID is returned when a caller-supplied dashboard id does not
	// have the 15-digit shape.
	ErrInvalidID = errors.New("invalid dashboard id")

	// ErrWrongPassword is returned when a shared-dashboard password check fails.
	ErrWrongPassword = errors.New("wrong share password")
)

// DashboardService layers dashboard lifecycle operations over the raw
// collections: save, update, publish (snapshot fork), unpublish, delete.
type DashboardService struct {
	store  *Store
	ids    *topicid.Generator
	logger *zap.Logger
}

func NewDashboardService(s *Store, ids *topicid.Generator, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{store: s, ids: ids, logger: logger}
}

// Save stores a new dashboard. An empty ID is assigned a freshly generated
// topic identifier; a caller-supplied ID must have the 15-digit shape.
func (svc *DashboardService) Save(d *Dashboard) (*Dashboard, error) {
	if d.ID == "" {
		d.ID = svc.ids.Generate()
	} else if !topicid.Validate(d.ID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, d.ID)
	}

	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	svc.store.Dashboards.Set(d.ID, d)
	svc.logger.Info("dashboard saved",
		zap.String("id", d.ID),
		zap.String("owner", d.Owner),
		zap.Int("widgets", len(d.Widgets)))
	return d, nil
}

func (svc *DashboardService) Get(id string) (*Dashboard, error) {
	d, ok := svc.store.Dashboards.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (svc *DashboardService) List() []*Dashboard {
	out := make([]*Dashboard, 0, svc.store.Dashboards.Len())
	svc.store.Dashboards.Range(func(_ string, d *Dashboard) bool {
		out = append(out, d)
		return true
	})
	return out
}

// Update replaces the editable fields of a dashboard. A stored record is
// never mutated: the change lands on a copy which then replaces the old
// pointer, so concurrent readers keep a consistent view. The owner check is
// a plain string comparison; concurrent updates are last-write-wins.
func (svc *DashboardService) Update(id, owner string, upd *Dashboard) (*Dashboard, error) {
	d, ok := svc.store.Dashboards.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if d.Owner != owner {
		return nil, ErrForbidden
	}

	next := *d
	if upd.Name != "" {
		next.Name = upd.Name
	}
	if upd.Widgets != nil {
		next.Widgets = upd.Widgets
	}
	if upd.Layout != nil {
		next.Layout = upd.Layout
	}
	next.UpdatedAt = time.Now()

	svc.store.Dashboards.Set(id, &next)
	return &next, nil
}

// Publish forks an immutable shared snapshot of the dashboard. A non-empty
// password protects the snapshot with a bcrypt hash. Republishing an
// already-published dashboard refreshes the snapshot under the same
// shareable id.
func (svc *DashboardService) Publish(id, owner, password string) (*SharedDashboard, error) {
	d, ok := svc.store.Dashboards.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if d.Owner != owner {
		return nil, ErrForbidden
	}

	shareableID := d.ShareableID
	if shareableID == "" {
		shareableID = uuid.NewString()
	}

	now := time.Now()
	snapshot := &SharedDashboard{
		ShareableID: shareableID,
		DashboardID: d.ID,
		Name:        d.Name,
		Widgets:     cloneWidgets(d.Widgets),
		Layout:      cloneLayout(d.Layout),
		PublishedAt: now,
	}

	// publish state lands on a copy, never on the stored record
	next := *d

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash share password: %w", err)
		}
		snapshot.PasswordProtected = true
		snapshot.passwordHash = string(hash)
		next.SharePassword = string(hash)
	}

	next.IsPublished = true
	next.PublishedAt = &now
	next.ShareableID = shareableID
	next.UpdatedAt = now

	svc.store.Shared.Set(shareableID, snapshot)
	svc.store.Dashboards.Set(next.ID, &next)

	svc.logger.Info("dashboard published",
		zap.String("id", d.ID),
		zap.String("shareableId", shareableID),
		zap.Bool("passwordProtected", snapshot.PasswordProtected))
	return snapshot, nil
}

// Unpublish removes the shared snapshot and clears the publish fields.
func (svc *DashboardService) Unpublish(id, owner string) error {
	d, ok := svc.store.Dashboards.Get(id)
	if !ok {
		return ErrNotFound
	}
	if d.Owner != owner {
		return ErrForbidden
	}

	if d.ShareableID != "" {
		svc.store.Shared.Delete(d.ShareableID)
	}

	next := *d
	next.IsPublished = false
	next.PublishedAt = nil
	next.ShareableID = ""
	next.SharePassword = ""
	next.UpdatedAt = time.Now()

	svc.store.Dashboards.Set(id, &next)
	return nil
}

// Delete removes a dashboard and, when present, its shared snapshot.
func (svc *DashboardService) Delete(id, owner string) error {
	d, ok := svc.store.Dashboards.Get(id)
	if !ok {
		return ErrNotFound
	}
	if d.Owner != owner {
		return ErrForbidden
	}

	if d.ShareableID != "" {
		svc.store.Shared.Delete(d.ShareableID)
	}
	svc.store.Dashboards.Delete(id)
	svc.logger.Info("dashboard deleted", zap.String("id", id))
	return nil
}

// GetShared returns a snapshot without checking its password. Handlers use
// PasswordProtected to decide whether AccessShared is required first.
func (svc *DashboardService) GetShared(shareableID string) (*SharedDashboard, error) {
	sd, ok := svc.store.Shared.Get(shareableID)
	if !ok {
		return nil, ErrNotFound
	}
	return sd, nil
}

// AccessShared verifies the password of a protected snapshot. Unprotected
// snapshots accept any password, including the empty string.
func (svc *DashboardService) AccessShared(shareableID, password string) (*SharedDashboard, error) {
	sd, ok := svc.store.Shared.Get(shareableID)
	if !ok {
		return nil, ErrNotFound
	}
	if !sd.PasswordProtected {
		return sd, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(sd.passwordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return sd, nil
}

func cloneWidgets(in []Widget) []Widget {
	if in == nil {
		return nil
	}
	out := make([]Widget, len(in))
	copy(out, in)
	for i := range out {
		out[i].Options = cloneLayout(in[i].Options)
	}
	return out
}

func cloneLayout(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
