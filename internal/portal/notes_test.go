package portal

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-portal/internal/apiclient"
)

func notesMux(t *testing.T, listStatus int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "patient", r.URL.Query().Get("role"))
		writeJSONBody(w, http.StatusOK, `[{"id":7,"full_name":"Jane Roe","role":"patient"}]`)
	})
	mux.HandleFunc("GET /notes/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		if listStatus != http.StatusOK {
			writeJSONBody(w, listStatus, `{"detail":"nope"}`)
			return
		}
		writeJSONBody(w, http.StatusOK, `[
			{"id":1,"content":"Initial assessment","created_at":"2026-01-14T09:05:00","author_name":"Dr. Grey","patient_id":7}
		]`)
	})
	mux.HandleFunc("POST /notes/", func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.CreateNoteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(7), req.PatientID)
		writeJSONBody(w, http.StatusOK, `{"id":2,"content":"`+req.Content+`","created_at":"2026-01-15T10:00:00","author_name":"Dr. Grey","patient_id":7}`)
	})
	mux.HandleFunc("PUT /notes/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusInternalServerError, `{}`)
	})
	mux.HandleFunc("DELETE /notes/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestNotesListStates(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		contains   string
		withBanner bool
	}{
		{"ok", http.StatusOK, "Initial assessment", false},
		{"not found", http.StatusNotFound, "No notes found.", false},
		{"server error", http.StatusInternalServerError, "No notes found.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, notesMux(t, tt.status), nil)
			h.signIn(t, "d", doctor)

			rec := h.do(http.MethodGet, "/notes", "d", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, tt.contains)
			if tt.withBanner {
				assert.Contains(t, body, "Could not load notes.")
			} else {
				assert.NotContains(t, body, "Could not load notes.")
			}
		})
	}
}

func TestNotesAddSplicesWithoutRefetch(t *testing.T) {
	h := newHarness(t, notesMux(t, http.StatusOK), nil)
	h.signIn(t, "d", doctor)

	rec := h.do(http.MethodGet, "/notes?patient_id=7", "d", nil)
	assert.Contains(t, rec.Body.String(), `<input type="hidden" name="patient_id" value="7">`)

	rec = h.do(http.MethodPost, "/notes", "d", url.Values{"content": {"Follow-up booked"}, "patient_id": {"7"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/notes?patient_id=7", rec.Header().Get("Location"))

	rec = h.do(http.MethodGet, rec.Header().Get("Location"), "d", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "Follow-up booked")
	assert.Contains(t, body, "Initial assessment")
	assert.Contains(t, body, "Note added successfully")
	assert.Contains(t, body, "15/01/2026, 10:00")
	assert.Equal(t, 1, h.count("GET /notes/"))
}

func TestNotesAddUsesPostedPatient(t *testing.T) {
	h := newHarness(t, notesMux(t, http.StatusOK), nil)
	h.signIn(t, "d", doctor)

	// The panel last listed patient 9; the form names patient 7.
	h.do(http.MethodGet, "/notes?patient_id=9", "d", nil)
	rec := h.do(http.MethodPost, "/notes", "d", url.Values{"content": {"Intake done"}, "patient_id": {"7"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, h.count("POST /notes/"))
}

func TestNotesUpdateFailureAlerts(t *testing.T) {
	h := newHarness(t, notesMux(t, http.StatusOK), nil)
	h.signIn(t, "d", doctor)

	h.do(http.MethodGet, "/notes?edit=1", "d", nil)
	rec := h.do(http.MethodPost, "/notes/1/update", "d", url.Values{"content": {"changed"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(http.MethodGet, rec.Header().Get("Location"), "d", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "Update failed")
	assert.Contains(t, body, "Initial assessment")
	assert.NotContains(t, body, "changed")
}

func TestNotesDeleteAsksFirst(t *testing.T) {
	h := newHarness(t, notesMux(t, http.StatusOK), nil)
	h.signIn(t, "d", doctor)

	h.do(http.MethodGet, "/notes", "d", nil)

	rec := h.do(http.MethodPost, "/notes/1/delete", "d", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete this note?")
	assert.Zero(t, h.count("DELETE /notes/delete/1"))

	rec = h.do(http.MethodPost, "/notes/1/delete", "d", url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, h.count("DELETE /notes/delete/1"))

	rec = h.do(http.MethodGet, rec.Header().Get("Location"), "d", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "Note deleted")
	assert.NotContains(t, body, "Initial assessment")
}

func TestPsychologistProfileShowsNotes(t *testing.T) {
	h := newHarness(t, notesMux(t, http.StatusOK), nil)
	h.signIn(t, "d", doctor)

	rec := h.do(http.MethodGet, "/profile", "d", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Psychologist Profile")
	assert.Contains(t, body, "Clinical Notes")
	assert.Contains(t, body, "Jane Roe")
}
