package web

import (
	"net/http"
	"time"

	"calgrid/internal/ics"
	"calgrid/internal/layout"
	"calgrid/internal/metric"
	"calgrid/internal/model"
)

type blockDTO struct {
	layout.Block
	Action string `json:"action,omitempty"`
}

type dayDTO struct {
	Date   string     `json:"date"`
	Start  time.Time  `json:"start"`
	Blocks []blockDTO `json:"blocks"`
}

type nowDTO struct {
	Time     time.Time `json:"time"`
	Visible  bool      `json:"visible"`
	DayIndex int       `json:"dayIndex"`
	Position float64   `json:"position"`
}

type monthDTO struct {
	Month string             `json:"month"`
	Cells []layout.MonthCell `json:"cells"`
}

type layoutResponse struct {
	View       model.ViewMode   `json:"view"`
	Date       string           `json:"date"`
	Title      string           `json:"title"`
	Window     layout.Window    `json:"window"`
	Prev       string           `json:"prev"`
	Next       string           `json:"next"`
	Today      string           `json:"today"`
	Days       []dayDTO         `json:"days,omitempty"`
	Now        *nowDTO          `json:"now,omitempty"`
	Counts     map[string]int   `json:"counts,omitempty"`
	Months     []monthDTO       `json:"months,omitempty"`
	Mini       monthDTO         `json:"mini"`
	Categories []model.Category `json:"categories"`
	Selected   []string         `json:"selected"`
}

// handleLayout computes what the UI draws for one view.
//
// GET /api/layout?view=week&date=2025-03-10
//   - view: day (default), week, month or year
//   - date: anchor date; see parseDate
//
// Day and week views carry positioned blocks per day plus the now
// indicator; month and year views carry per-date event counts.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	mode, err := model.ParseViewMode(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.now().In(s.loc)
	anchor, err := s.parseDate(q.Get("date"), now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
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

	vs := model.ViewState{SelectedDate: anchor, Mode: mode}
	resp := layoutResponse{
		View:       mode,
		Date:       anchor.Format(time.DateOnly),
		Title:      viewTitle(vs, s.weekStart),
		Window:     layout.ViewWindow(vs, s.weekStart),
		Prev:       layout.Step(vs, -1).SelectedDate.Format(time.DateOnly),
		Next:       layout.Step(vs, 1).SelectedDate.Format(time.DateOnly),
		Today:      now.Format(time.DateOnly),
		Mini:       month(anchor, s.weekStart),
		Categories: snap.categories,
		Selected:   filter.IDs(snap.categories),
	}

	switch mode {
	case model.ViewDay:
		d := layout.LayoutDay(snap.events, snap.categories, anchor, filter)
		metric.ObserveDay(d)
		resp.Days = []dayDTO{toDayDTO(d)}
		pos, ok := layout.LocateDay(now, anchor)
		resp.Now = &nowDTO{Time: now, Visible: ok, Position: pos}

	case model.ViewWeek:
		wk := layout.LayoutWeek(snap.events, snap.categories, anchor, s.weekStart, filter)
		for _, d := range wk.Days {
			metric.ObserveDay(d)
			resp.Days = append(resp.Days, toDayDTO(d))
		}
		ind, ok := layout.LocateWeek(now, layout.WeekDays(anchor, s.weekStart))
		resp.Now = &nowDTO{Time: now, Visible: ok, DayIndex: ind.DayIndex, Position: ind.Position}

	case model.ViewMonth:
		resp.Counts = layout.CountByDay(snap.events, resp.Window, filter)
		resp.Months = []monthDTO{month(anchor, s.weekStart)}

	case model.ViewYear:
		resp.Counts = layout.CountByDay(snap.events, resp.Window, filter)
		for m := resp.Window.Start; m.Before(resp.Window.End); m = m.AddDate(0, 1, 0) {
			resp.Months = append(resp.Months, month(m, s.weekStart))
		}
	}

	metric.LayoutRequests.WithLabelValues(string(mode)).Inc()
	writeJSON(w, http.StatusOK, resp)
}

// handleNow is polled by the UI once a minute to move the indicator.
//
// GET /api/now?view=day&date=2025-03-10
func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := model.ParseViewMode(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.now().In(s.loc)
	anchor, err := s.parseDate(q.Get("date"), now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
		return
	}

	resp := nowDTO{Time: now}
	switch mode {
	case model.ViewWeek:
		ind, ok := layout.LocateWeek(now, layout.WeekDays(anchor, s.weekStart))
		resp.Visible, resp.DayIndex, resp.Position = ok, ind.DayIndex, ind.Position
	case model.ViewDay:
		resp.Position, resp.Visible = layout.LocateDay(now, anchor)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExport serves every stored event as an iCalendar feed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.data(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calgrid.ics"`)
	_, _ = w.Write([]byte(ics.Export(snap.events, snap.categories, s.now())))
}

func toDayDTO(d layout.DayLayout) dayDTO {
	out := dayDTO{
		Date:   d.Day.Start.Format(time.DateOnly),
		Start:  d.Day.Start,
		Blocks: make([]blockDTO, 0, len(d.Blocks)),
	}
	for _, b := range d.Blocks {
		out.Blocks = append(out.Blocks, blockDTO{Block: b, Action: actionFor(b.Category.ID)})
	}
	return out
}

func month(t time.Time, weekStart time.Weekday) monthDTO {
	return monthDTO{Month: t.Format("2006-01"), Cells: layout.MonthGrid(t, weekStart)}
}

func viewTitle(vs model.ViewState, weekStart time.Weekday) string {
	d := vs.SelectedDate
	switch vs.Mode {
	case model.ViewWeek:
		days := layout.WeekDays(d, weekStart)
		first, last := days[0], days[6]
		if first.Year() != last.Year() {
			return first.Format("Jan 2, 2006") + " - " + last.Format("Jan 2, 2006")
		}
		return first.Format("Jan 2") + " - " + last.Format("Jan 2, 2006")
	case model.ViewMonth:
		return d.Format("January 2006")
	case model.ViewYear:
		return d.Format("2006")
	default:
		return d.Format("Monday, January 2, 2006")
	}
}
