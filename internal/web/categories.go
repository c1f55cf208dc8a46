package web

import (
	"net/http"
	"regexp"
	"strings"

	"calgrid/internal/config"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// categoryActions is the call to action shown in the event detail view,
// keyed by category id. Categories not listed have none.
var categoryActions = map[string]string{
	"academy":  "Enroll",
	"work":     "Join",
	"events":   "Register",
	"personal": "Register",
	"family":   "Register",
}

func actionFor(categoryID string) string {
	return categoryActions[categoryID]
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	snap, err := s.data(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.categories)
}

// handlePutCategory creates or replaces a category.
//
// PUT /api/categories/{id} {"name": "Gym", "color": "#22C55E"}
func (s *Server) handlePutCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	c := model.Category{
		ID:    strings.ToLower(strings.TrimSpace(r.PathValue("id"))),
		Name:  config.CleanupName(in.Name),
		Color: in.Color,
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !hexColor.MatchString(c.Color) {
		writeError(w, http.StatusBadRequest, "color must look like #RRGGBB")
		return
	}

	if err := s.repo.PutCategory(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	s.Invalidate()
	appLog.Info("category saved", "id", c.ID)
	writeJSON(w, http.StatusOK, c)
}

type filterResponse struct {
	Selected []string `json:"selected"`
}

func (s *Server) writeFilter(w http.ResponseWriter, r *http.Request, f model.CategoryFilter) {
	snap, err := s.data(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filterResponse{Selected: f.IDs(snap.categories)})
}

func (s *Server) saveFilter(w http.ResponseWriter, r *http.Request, f model.CategoryFilter) {
	if err := s.repo.SetSelectedCategories(r.Context(), f); err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Debug("category filter saved", "count", len(f))
	s.writeFilter(w, r, f)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	f, err := s.repo.SelectedCategories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeFilter(w, r, f)
}

// handleSetFilter replaces the selection.
//
// PUT /api/filter {"selected": ["work", "family"]}
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var in filterResponse
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.saveFilter(w, r, model.NewCategoryFilter(in.Selected...))
}

func (s *Server) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	f, err := s.repo.SelectedCategories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	f.Toggle(r.PathValue("id"))
	s.saveFilter(w, r, f)
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	snap, err := s.data(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.saveFilter(w, r, model.AllCategories(snap.categories))
}

func (s *Server) handleSelectNone(w http.ResponseWriter, r *http.Request) {
	s.saveFilter(w, r, model.NewCategoryFilter())
}
