// Package notes holds the clinical notes panel: a list mirrored from the
// API and kept in step with local splicing after each mutation.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
)

// PageSize caps every listing.
const PageSize = 50

// Messages shown to the user.
const (
	BannerLoadFailed = "Could not load notes."

	AlertAddFailed    = "Error adding note"
	AlertUpdateFailed = "Update failed"
	AlertDeleteFailed = "Failed to delete."

	NoticeAdded   = "Note added successfully"
	NoticeUpdated = "Updated successfully"
	NoticeDeleted = "Note deleted"
)

const createdLayout = "02/01/2006, 15:04"

var (
	ErrAddFailed    = errors.New("add note failed")
	ErrUpdateFailed = errors.New("update note failed")
	ErrDeleteFailed = errors.New("delete note failed")
	ErrNotConfirmed = errors.New("delete not confirmed")
	ErrUnknownNote  = errors.New("note not in list")
	ErrStale        = errors.New("superseded by a newer load")
)

// Store is the part of the API client the panel talks to.
type Store interface {
	Notes(ctx context.Context, q apiclient.NoteQuery) ([]apiclient.Note, error)
	CreateNote(ctx context.Context, req apiclient.CreateNoteRequest) (*apiclient.Note, error)
	UpdateNote(ctx context.Context, id int64, content string) (*apiclient.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

type Note struct {
	ID         int64
	Content    string
	CreatedAt  time.Time
	AuthorName string
	PatientID  int64
}

// Created renders the creation time as dd/MM/yyyy, HH:mm, or "" if the API
// sent something unreadable.
func (n Note) Created() string {
	if n.CreatedAt.IsZero() {
		return ""
	}
	return n.CreatedAt.Format(createdLayout)
}

// Query selects which notes the panel lists.
type Query struct {
	Search    string
	PatientID int64
}

// View is a copy of the panel state for rendering.
type View struct {
	Query   Query
	Notes   []Note
	Banner  string
	Alert   string
	Notice  string
	Editing int64
}

// Panel is one user's notes list. It is safe for concurrent use.
type Panel struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	loaded  bool
	keep    bool
	query   Query
	notes   []Note
	banner  string
	alert   string
	notice  string
	editing int64
}

func NewPanel(store Store, loc *time.Location, logger *zap.Logger) *Panel {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{store: store, loc: loc, logger: logger}
}

// Load fetches the list for q. Right after a mutation attempt the local
// list for the same query is shown instead of fetching again. A 404 reads
// as an empty list; any other failure sets the load banner. Each call
// supersedes the ones before it: an earlier load still in flight is
// cancelled and its result dropped with ErrStale.
func (p *Panel) Load(ctx context.Context, q Query) error {
	q.Search = strings.TrimSpace(q.Search)

	p.mu.Lock()
	p.gen++
	n := p.gen
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.loaded && p.keep && p.query == q {
		p.keep = false
		p.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	rows, err := p.store.Notes(ctx, apiclient.NoteQuery{
		PatientID: q.PatientID,
		Search:    q.Search,
		Limit:     PageSize,
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	if n != p.gen {
		return ErrStale
	}
	cancel()
	p.cancel = nil

	p.query = q
	p.loaded = true
	p.keep = false
	p.banner = ""

	switch {
	case err == nil:
		p.notes = p.convert(rows)
		return nil
	case errors.Is(err, apiclient.ErrNotFound):
		p.notes = nil
		return nil
	default:
		p.notes = nil
		p.banner = BannerLoadFailed
		return fmt.Errorf("load notes: %w", err)
	}
}

// Add creates a note for patientID and puts it first when the list shows
// that patient. Blank content does nothing.
func (p *Panel) Add(ctx context.Context, patientID int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	created, err := p.store.CreateNote(ctx, apiclient.CreateNoteRequest{
		PatientID:      patientID,
		Content:        content,
		IsConfidential: false,
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.alert = AlertAddFailed
		p.keep = p.loaded
		return fmt.Errorf("%w: %w", ErrAddFailed, err)
	}

	p.notice = NoticeAdded
	if p.query.PatientID != 0 && p.query.PatientID != patientID {
		// Listed for someone else; the next load fetches fresh.
		p.keep = false
		return nil
	}
	p.notes = append([]Note{p.convertOne(*created)}, p.notes...)
	p.keep = true
	return nil
}

// Update replaces the note's content and swaps the API's copy in place.
func (p *Panel) Update(ctx context.Context, id int64, content string) error {
	updated, err := p.store.UpdateNote(ctx, id, content)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.alert = AlertUpdateFailed
		p.keep = p.loaded
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	n := p.convertOne(*updated)
	for i := range p.notes {
		if p.notes[i].ID == id {
			p.notes[i] = n
			break
		}
	}
	p.editing = 0
	p.keep = true
	p.notice = NoticeUpdated
	return nil
}

// Delete removes the note once confirmed. Without confirmation nothing
// is sent and ErrNotConfirmed comes back.
func (p *Panel) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	err := p.store.DeleteNote(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.alert = AlertDeleteFailed
		p.keep = p.loaded
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	kept := p.notes[:0:0]
	for _, n := range p.notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	p.notes = kept
	if p.editing == id {
		p.editing = 0
	}
	p.keep = true
	p.notice = NoticeDeleted
	return nil
}

// Edit marks a listed note as being edited; id 0 cancels.
func (p *Panel) Edit(id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id == 0 {
		p.editing = 0
		return nil
	}
	for _, n := range p.notes {
		if n.ID == id {
			p.editing = id
			return nil
		}
	}
	return ErrUnknownNote
}

// Find returns the listed note with id.
func (p *Panel) Find(id int64) (Note, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range p.notes {
		if n.ID == id {
			return n, true
		}
	}
	return Note{}, false
}

// Query is the query the list was last loaded for.
func (p *Panel) Query() Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// View copies the state out and consumes the one-shot alert and notice.
func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Query:   p.query,
		Notes:   append([]Note(nil), p.notes...),
		Banner:  p.banner,
		Alert:   p.alert,
		Notice:  p.notice,
		Editing: p.editing,
	}
	p.alert = ""
	p.notice = ""
	return v
}

func (p *Panel) convert(rows []apiclient.Note) []Note {
	out := make([]Note, 0, len(rows))
	for _, r := range rows {
		out = append(out, p.convertOne(r))
	}
	return out
}

func (p *Panel) convertOne(r apiclient.Note) Note {
	n := Note{
		ID:         r.ID,
		Content:    r.Content,
		AuthorName: r.AuthorName,
		PatientID:  r.PatientID,
	}
	if t, err := apiclient.ParseTime(r.CreatedAt, p.loc); err == nil {
		n.CreatedAt = t
	} else if r.CreatedAt != "" {
		p.logger.Debug("unreadable note timestamp", zap.Int64("note_id", r.ID), zap.Error(err))
	}
	return n
}
