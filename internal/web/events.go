package web

import (
	"net/http"
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/layout"
	"calgrid/internal/model"
)

// eventInput is the body of POST and PUT /api/events. Times are RFC3339.
type eventInput struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	CategoryID  string    `json:"categoryId"`
}

func (in eventInput) event(loc *time.Location) model.Event {
	return model.Event{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Start:       in.Start.In(loc),
		End:         in.End.In(loc),
		CategoryID:  in.CategoryID,
	}
}

// handleListEvents returns stored events, optionally limited to those
// intersecting [start, end). Both bounds accept the same forms as
// /api/layout's date parameter.
//
// GET /api/events?start=2025-03-10&end=2025-03-17
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	snap, err := s.data(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	q := r.URL.Query()
	if q.Get("start") == "" && q.Get("end") == "" {
		writeJSON(w, http.StatusOK, snap.events)
		return
	}

	now := s.now().In(s.loc)
	start, err := s.parseDate(q.Get("start"), now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	end := start.AddDate(0, 0, 1)
	if q.Get("end") != "" {
		if end, err = s.parseDate(q.Get("end"), now); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
			return
		}
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	out := make([]model.Event, 0)
	for _, ev := range snap.events {
		if layout.IntersectsRange(ev.Start, ev.End, start, end) {
			out = append(out, ev)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.repo.Event(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ev, err := s.repo.AddEvent(r.Context(), in.event(s.loc))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.Invalidate()
	appLog.Info("event created", "id", ev.ID, "category", ev.CategoryID)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	id := r.PathValue("id")
	if in.ID != "" && in.ID != id {
		writeError(w, http.StatusBadRequest, "id in body does not match path")
		return
	}
	in.ID = id

	if err := s.repo.UpdateEvent(r.Context(), in.event(s.loc)); err != nil {
		writeStoreError(w, err)
		return
	}
	s.Invalidate()
	appLog.Info("event updated", "id", id)

	ev, err := s.repo.Event(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.repo.DeleteEvent(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.Invalidate()
	appLog.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

type overlappingResponse struct {
	Event       model.Event   `json:"event"`
	Overlapping []model.Event `json:"overlapping"`
}

// handleOverlapping lists the visible events on the same day as the given
// event that overlap it. The UI offers a chooser when the list is not
// empty.
func (s *Server) handleOverlapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, err := s.repo.Event(ctx, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	snap, err := s.data(ctx)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	filter, err := s.repo.SelectedCategories(ctx)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	day := r.URL.Query().Get("date")
	anchor := target.Start.In(s.loc)
	if day != "" {
		if anchor, err = s.parseDate(day, s.now().In(s.loc)); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
	}

	candidates := layout.SelectDay(snap.events, anchor, filter)
	writeJSON(w, http.StatusOK, overlappingResponse{
		Event:       target,
		Overlapping: layout.Overlapping(candidates, target),
	})
}
