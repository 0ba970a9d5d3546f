package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
)

type fakeStore struct {
	// listFn, when set, answers Notes instead of list/listErr.
	listFn func(ctx context.Context, q apiclient.NoteQuery) ([]apiclient.Note, error)

	listCalls int
	lastQuery apiclient.NoteQuery
	lastReq   apiclient.CreateNoteRequest

	list    []apiclient.Note
	listErr error
	nextID  int64
	failAll error
	deleted []int64
}

func (f *fakeStore) Notes(ctx context.Context, q apiclient.NoteQuery) ([]apiclient.Note, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	f.listCalls++
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeStore) CreateNote(_ context.Context, req apiclient.CreateNoteRequest) (*apiclient.Note, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.lastReq = req
	f.nextID++
	return &apiclient.Note{
		ID:         100 + f.nextID,
		Content:    req.Content,
		CreatedAt:  "2026-01-15T10:30:00",
		AuthorName: "Dr. Grey",
		PatientID:  req.PatientID,
	}, nil
}

func (f *fakeStore) UpdateNote(_ context.Context, id int64, content string) (*apiclient.Note, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return &apiclient.Note{ID: id, Content: content, AuthorName: "Dr. Grey"}, nil
}

func (f *fakeStore) DeleteNote(_ context.Context, id int64) error {
	if f.failAll != nil {
		return f.failAll
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func seeded() *fakeStore {
	return &fakeStore{list: []apiclient.Note{
		{ID: 1, Content: "first", CreatedAt: "2026-01-14T09:05:00", AuthorName: "Dr. Grey", PatientID: 7},
		{ID: 2, Content: "second", CreatedAt: "2026-01-13T16:45:00", AuthorName: "Dr. Grey", PatientID: 7},
	}}
}

func newTestPanel(store Store) *Panel {
	return NewPanel(store, time.UTC, zap.NewNop())
}

func ids(v View) []int64 {
	out := make([]int64, 0, len(v.Notes))
	for _, n := range v.Notes {
		out = append(out, n.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	store := seeded()
	p := newTestPanel(store)

	require.NoError(t, p.Load(context.Background(), Query{Search: "  grief ", PatientID: 7}))
	assert.Equal(t, apiclient.NoteQuery{PatientID: 7, Search: "grief", Limit: 50}, store.lastQuery)

	v := p.View()
	assert.Equal(t, []int64{1, 2}, ids(v))
	assert.Empty(t, v.Banner)
	assert.Equal(t, "14/01/2026, 09:05", v.Notes[0].Created())
}

func TestLoadNotFoundIsEmpty(t *testing.T) {
	store := &fakeStore{listErr: &apiclient.Error{StatusCode: 404}}
	p := newTestPanel(store)

	require.NoError(t, p.Load(context.Background(), Query{}))
	v := p.View()
	assert.Empty(t, v.Notes)
	assert.Empty(t, v.Banner)
}

func TestLoadServerErrorShowsBanner(t *testing.T) {
	store := &fakeStore{listErr: &apiclient.Error{StatusCode: 500}}
	p := newTestPanel(store)

	assert.Error(t, p.Load(context.Background(), Query{}))
	v := p.View()
	assert.Empty(t, v.Notes)
	assert.Equal(t, "Could not load notes.", v.Banner)

	// The banner stays until a load succeeds.
	assert.Equal(t, BannerLoadFailed, p.View().Banner)
	store.listErr = nil
	require.NoError(t, p.Load(context.Background(), Query{}))
	assert.Empty(t, p.View().Banner)
}

func TestAddPrepends(t *testing.T) {
	store := seeded()
	p := newTestPanel(store)
	require.NoError(t, p.Load(context.Background(), Query{PatientID: 7}))

	require.NoError(t, p.Add(context.Background(), 7, "new note"))
	assert.Equal(t, apiclient.CreateNoteRequest{PatientID: 7, Content: "new note"}, store.lastReq)

	// The next load of the same query shows the spliced list without a fetch.
	require.NoError(t, p.Load(context.Background(), Query{PatientID: 7}))
	assert.Equal(t, 1, store.listCalls)

	v := p.View()
	assert.Equal(t, []int64{101, 1, 2}, ids(v))
	assert.Equal(t, "Note added successfully", v.Notice)
	assert.Empty(t, p.View().Notice)

	// After that the list is fetched again.
	require.NoError(t, p.Load(context.Background(), Query{PatientID: 7}))
	assert.Equal(t, 2, store.listCalls)
}

func TestAddBlankIsNoop(t *testing.T) {
	store := seeded()
	p := newTestPanel(store)

	require.NoError(t, p.Add(context.Background(), 0, "   \n"))
	assert.Zero(t, store.nextID)
	assert.Empty(t, p.View().Notice)
}

func TestUpdateReplacesInPlace(t *testing.T) {
	store := seeded()
	p := newTestPanel(store)
	require.NoError(t, p.Load(context.Background(), Query{}))
	require.NoError(t, p.Edit(2))
	assert.Equal(t, int64(2), p.View().Editing)

	require.NoError(t, p.Update(context.Background(), 2, "revised"))

	v := p.View()
	assert.Equal(t, []int64{1, 2}, ids(v))
	assert.Equal(t, "revised", v.Notes[1].Content)
	assert.Zero(t, v.Editing)
	assert.Equal(t, "Updated successfully", v.Notice)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	store := seeded()
	p := newTestPanel(store)
	require.NoError(t, p.Load(context.Background(), Query{}))

	assert.ErrorIs(t, p.Delete(context.Background(), 1, false), ErrNotConfirmed)
	assert.Empty(t, store.deleted)

	require.NoError(t, p.Delete(context.Background(), 1, true))
	assert.Equal(t, []int64{1}, store.deleted)

	v := p.View()
	assert.Equal(t, []int64{2}, ids(v))
	assert.Equal(t, "Note deleted", v.Notice)
}

func TestMutationFailuresLeaveListAlone(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name  string
		run   func(p *Panel) error
		want  error
		alert string
	}{
		{"add", func(p *Panel) error { return p.Add(context.Background(), 0, "x") }, ErrAddFailed, "Error adding note"},
		{"update", func(p *Panel) error { return p.Update(context.Background(), 1, "x") }, ErrUpdateFailed, "Update failed"},
		{"delete", func(p *Panel) error { return p.Delete(context.Background(), 1, true) }, ErrDeleteFailed, "Failed to delete."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seeded()
			p := newTestPanel(store)
			require.NoError(t, p.Load(context.Background(), Query{}))
			store.failAll = boom

			err := tt.run(p)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, boom)

			require.NoError(t, p.Load(context.Background(), Query{}))
			assert.Equal(t, 1, store.listCalls)

			v := p.View()
			assert.Equal(t, []int64{1, 2}, ids(v))
			assert.Equal(t, tt.alert, v.Alert)
			assert.Empty(t, v.Notice)
		})
	}
}

func TestEditUnknownNote(t *testing.T) {
	p := newTestPanel(seeded())
	require.NoError(t, p.Load(context.Background(), Query{}))

	assert.ErrorIs(t, p.Edit(99), ErrUnknownNote)
	require.NoError(t, p.Edit(0))

	n, ok := p.Find(2)
	require.True(t, ok)
	assert.Equal(t, "second", n.Content)
}

func TestOverlappingLoadsKeepLatest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	store := &fakeStore{}
	store.listFn = func(ctx context.Context, q apiclient.NoteQuery) ([]apiclient.Note, error) {
		if q.PatientID == 1 {
			close(started)
			<-release
			return []apiclient.Note{{ID: 11, Content: "old", PatientID: 1}}, nil
		}
		return []apiclient.Note{{ID: 22, Content: "new", PatientID: 2}}, nil
	}
	p := newTestPanel(store)

	var slowErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		slowErr = p.Load(context.Background(), Query{PatientID: 1})
	}()

	<-started
	require.NoError(t, p.Load(context.Background(), Query{PatientID: 2}))
	close(release)
	<-done

	assert.ErrorIs(t, slowErr, ErrStale)
	assert.Equal(t, Query{PatientID: 2}, p.Query())

	require.NoError(t, p.Add(context.Background(), 2, "follow-up"))
	assert.Equal(t, int64(2), store.lastReq.PatientID)
	assert.Equal(t, []int64{101, 22}, ids(p.View()))
}

func TestAddForOtherPatientRefetches(t *testing.T) {
	store := seeded()
	p := newTestPanel(store)
	require.NoError(t, p.Load(context.Background(), Query{PatientID: 7}))

	require.NoError(t, p.Add(context.Background(), 8, "elsewhere"))
	assert.Equal(t, int64(8), store.lastReq.PatientID)

	require.NoError(t, p.Load(context.Background(), Query{PatientID: 7}))
	assert.Equal(t, 2, store.listCalls)

	v := p.View()
	assert.Equal(t, []int64{1, 2}, ids(v))
	assert.Equal(t, NoticeAdded, v.Notice)
}
