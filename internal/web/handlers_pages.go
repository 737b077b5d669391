package web

import (
	"net/http"

	"github.com/JonMunkholm/stockroom/internal/core"
	"github.com/JonMunkholm/stockroom/internal/web/templates"
)

// handleDashboard renders the category list.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := templates.DashboardParams{
		Categories: s.service.Categories(r.Context()),
		Status:     s.service.Status(),
	}
	templates.Dashboard(params).Render(r.Context(), w)
}

// handleCategoryPage renders one category's table with its forms.
func (s *Server) handleCategoryPage(w http.ResponseWriter, r *http.Request) {
	name, grid, ok := s.service.Grid(r.Context(), urlParam(r, "category"))
	if !ok {
		s.respondError(w, r, core.ErrCategoryNotFound, http.StatusNotFound)
		return
	}

	params := templates.CategoryParams{
		Category: core.CategoryRef{Sanitized: core.Sanitize(name), Original: name},
		Grid:     grid,
	}
	if roles, err := core.InferRoles(grid.Header); err != nil {
		params.SchemaErr = core.MapError(err).Message
	} else {
		params.Roles = roles
	}
	templates.CategoryPage(params).Render(r.Context(), w)
}
