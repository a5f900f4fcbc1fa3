package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/topicid"
)

func newDashboardService(t *testing.T) (*DashboardService, *Store) {
	t.Helper()
	s := New()
	svc := NewDashboardService(s, topicid.NewGenerator(), zaptest.NewLogger(t))
	return svc, s
}

func TestSaveAssignsTopicID(t *testing.T) {
	svc, _ := newDashboardService(t)

	d, err := svc.Save(&Dashboard{Name: "plant floor", Owner: "anon-1"})
	require.NoError(t, err)
	assert.True(t, topicid.Validate(d.ID))
	assert.False(t, d.CreatedAt.IsZero())
	assert.Equal(t, d.CreatedAt, d.UpdatedAt)

	got, err := svc.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "plant floor", got.Name)
}

func TestSaveRejectsMalformedID(t *testing.T) {
	svc, _ := newDashboardService(t)

	_, err := svc.Save(&Dashboard{ID: "nope", Owner: "anon-1"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestUpdateOwnerMismatch(t *testing.T) {
	svc, _ := newDashboardService(t)
	d, err := svc.Save(&Dashboard{Name: "mine", Owner: "anon-1"})
	require.NoError(t, err)

	_, err = svc.Update(d.ID, "anon-2", &Dashboard{Name: "stolen"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update("000000000000000", "anon-1", &Dashboard{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReplacesRecordInsteadOfMutating(t *testing.T) {
	svc, _ := newDashboardService(t)
	d, err := svc.Save(&Dashboard{Name: "before", Owner: "anon-1"})
	require.NoError(t, err)

	// a reader holding the old pointer must never observe the write
	held, err := svc.Get(d.ID)
	require.NoError(t, err)

	updated, err := svc.Update(d.ID, "anon-1", &Dashboard{Name: "after"})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, "before", held.Name)

	got, err := svc.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
}

func TestPublishReplacesRecordInsteadOfMutating(t *testing.T) {
	svc, _ := newDashboardService(t)
	d, err := svc.Save(&Dashboard{Name: "board", Owner: "anon-1"})
	require.NoError(t, err)

	held, err := svc.Get(d.ID)
	require.NoError(t, err)

	_, err = svc.Publish(d.ID, "anon-1", "")
	require.NoError(t, err)
	assert.False(t, held.IsPublished)
	assert.Empty(t, held.ShareableID)

	got, err := svc.Get(d.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)
	assert.NotEmpty(t, got.ShareableID)

	require.NoError(t, svc.Unpublish(d.ID, "anon-1"))
	assert.True(t, got.IsPublished, "unpublish lands on a fresh copy too")
}

func TestPublishSnapshotIsDecoupledFromLaterEdits(t *testing.T) {
	svc, _ := newDashboardService(t)

	d, err := svc.Save(&Dashboard{
		Name:  "line 1",
		Owner: "anon-1",
		Widgets: []Widget{
			{ID: "w1", Type: "gauge", Topic: "line1/temp", W: 2, H: 2},
		},
	})
	require.NoError(t, err)

	snapshot, err := svc.Publish(d.ID, "anon-1", "")
	require.NoError(t, err)
	require.NotEmpty(t, snapshot.ShareableID)
	require.Len(t, snapshot.Widgets, 1)
	assert.Equal(t, "line1/temp", snapshot.Widgets[0].Topic)
	assert.False(t, snapshot.PasswordProtected)

	// edit the original after publishing
	_, err = svc.Update(d.ID, "anon-1", &Dashboard{
		Widgets: []Widget{
			{ID: "w1", Type: "gauge", Topic: "line1/pressure", W: 2, H: 2},
			{ID: "w2", Type: "chart", Topic: "line1/flow", W: 4, H: 2},
		},
	})
	require.NoError(t, err)

	got, err := svc.GetShared(snapshot.ShareableID)
	require.NoError(t, err)
	require.Len(t, got.Widgets, 1)
	assert.Equal(t, "line1/temp", got.Widgets[0].Topic)
}

func TestRepublishKeepsShareableID(t *testing.T) {
	svc, _ := newDashboardService(t)
	d, err := svc.Save(&Dashboard{Name: "line 2", Owner: "anon-1"})
	require.NoError(t, err)

	first, err := svc.Publish(d.ID, "anon-1", "")
	require.NoError(t, err)
	second, err := svc.Publish(d.ID, "anon-1", "")
	require.NoError(t, err)

	assert.Equal(t, first.ShareableID, second.ShareableID)
}

func TestPublishWithPassword(t *testing.T) {
	svc, _ := newDashboardService(t)
	d, err := svc.Save(&Dashboard{Name: "secret", Owner: "anon-1"})
	require.NoError(t, err)

	snapshot, err := svc.Publish(d.ID, "anon-1", "hunter2")
	require.NoError(t, err)
	assert.True(t, snapshot.PasswordProtected)

	_, err = svc.AccessShared(snapshot.ShareableID, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	got, err := svc.AccessShared(snapshot.ShareableID, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.DashboardID)
}

func TestDeleteRemovesSnapshot(t *testing.T) {
	svc, s := newDashboardService(t)

	published, err := svc.Save(&Dashboard{Name: "pub", Owner: "anon-1"})
	require.NoError(t, err)
	snapshot, err := svc.Publish(published.ID, "anon-1", "")
	require.NoError(t, err)

	unpublished, err := svc.Save(&Dashboard{Name: "draft", Owner: "anon-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(unpublished.ID, "anon-1"))
	assert.Equal(t, 1, s.Shared.Len(), "deleting a draft must not touch shared snapshots")

	require.NoError(t, svc.Delete(published.ID, "anon-1"))
	assert.Equal(t, 0, s.Shared.Len())
	_, err = svc.GetShared(snapshot.ShareableID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnpublish(t *testing.T) {
	svc, s := newDashboardService(t)
	d, err := svc.Save(&Dashboard{Name: "pub", Owner: "anon-1"})
	require.NoError(t, err)

	snapshot, err := svc.Publish(d.ID, "anon-1", "")
	require.NoError(t, err)
	require.NoError(t, svc.Unpublish(d.ID, "anon-1"))

	got, err := svc.Get(d.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublished)
	assert.Empty(t, got.ShareableID)
	assert.Nil(t, got.PublishedAt)
	assert.Equal(t, 0, s.Shared.Len())

	_, err = svc.GetShared(snapshot.ShareableID)
	assert.ErrorIs(t, err, ErrNotFound)
}
