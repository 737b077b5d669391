package templates

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// DashboardParams is the data for the category list page.
type DashboardParams struct {
	Categories []core.CategoryRef
	Status     core.Status
}

// Dashboard lists every category with a link to its table.
func Dashboard(p DashboardParams) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<h1>Inventory</h1>`)
		statusLine(h, p.Status)

		if len(p.Categories) == 0 {
			h.raw(`<p class="empty">No categories found.</p>`)
			return h.err
		}

		h.raw(`<ul class="categories">`)
		for _, c := range p.Categories {
			h.raw(`<li><a href="`)
			h.text(categoryPath("/category/", c.Sanitized))
			h.raw(`">`)
			h.text(c.Original)
			h.raw(`</a></li>`)
		}
		h.raw(`</ul>`)
		return h.err
	})
	return Layout("Inventory", body)
}

func statusLine(h *htmlWriter, st core.Status) {
	h.raw(`<p class="status">`)
	h.text(st.Store)
	if !st.LoadedAt.IsZero() {
		h.raw(` · loaded `)
		h.text(st.LoadedAt.Local().Format(time.DateTime))
	}
	h.raw(`</p>`)
	if st.Stale {
		msg := "Showing the last good copy of the inventory."
		if st.LastError != "" {
			msg = st.LastError + ". " + msg
		}
		h.component(ErrorAlert(msg, "Use Reload once the store is back.", ""))
	}
}

// CategoryParams is the data for one category's table page.
type CategoryParams struct {
	Category core.CategoryRef
	Grid     core.Grid

	// Roles is meaningful only when SchemaErr is empty.
	Roles     core.Roles
	SchemaErr string
}

// CategoryPage renders the table with sale, restock and entry forms. The
// forms post to the JSON API through app.js.
func CategoryPage(p CategoryParams) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		api := categoryPath("/api/inventory/", p.Category.Sanitized)

		h.raw(`<h1>`)
		h.text(p.Category.Original)
		h.raw(`</h1><div id="flash" aria-live="polite"></div>`)

		if p.SchemaErr != "" {
			h.component(ErrorAlert(p.SchemaErr, "Sales and restocks are disabled for this category.", "INV002"))
		} else {
			h.raw(`<form class="stock-form" data-api="`)
			h.text(api)
			h.raw(`"><label>Item <input name="item_id" required></label>`)
			h.raw(`<label>Quantity <input name="quantity" type="number" min="1" value="1" required></label>`)
			h.raw(`<button type="submit" data-op="sale">Sell</button>`)
			h.raw(`<button type="submit" data-op="restock">Restock</button></form>`)
		}

		table(h, p, api)
		entryForm(h, p.Grid.Header, api)

		h.raw(`<p class="danger"><button type="button" data-delete="`)
		h.text(api + "/entries")
		h.raw(`" data-confirm="Delete every entry in this category?">Delete all entries</button> `)
		h.raw(`<button type="button" data-delete="`)
		h.text(api)
		h.raw(`" data-confirm="Delete this category?" data-redirect="/">Delete category</button></p>`)
		return h.err
	})
	return Layout(p.Category.Original, body)
}

func table(h *htmlWriter, p CategoryParams, api string) {
	if p.Grid.Empty() {
		h.raw(`<p class="empty">This category has no header row yet.</p>`)
		return
	}

	h.raw(`<table class="grid"><thead><tr><th>#</th>`)
	for _, label := range p.Grid.Header {
		h.raw(`<th>`)
		h.text(label)
		h.raw(`</th>`)
	}
	h.raw(`<th></th></tr></thead><tbody>`)

	canDelete := p.SchemaErr == ""
	for i, row := range p.Grid.Rows {
		// Displayed position; 1 is the header row.
		h.raw(`<tr><td class="pos">`)
		h.text(strconv.Itoa(i + 2))
		h.raw(`</td>`)
		for c := range p.Grid.Header {
			h.raw(`<td>`)
			h.text(row.Cell(c))
			h.raw(`</td>`)
		}
		h.raw(`<td>`)
		if id := row.Cell(p.Roles.Identifier); canDelete && id != "" {
			h.raw(`<button type="button" class="link" data-delete="`)
			h.text(api + "/entries/" + categoryPath("", id))
			h.raw(`" data-confirm="Delete this entry?">Delete</button>`)
		}
		h.raw(`</td></tr>`)
	}
	if len(p.Grid.Rows) == 0 {
		h.raw(`<tr><td class="empty" colspan="`)
		h.text(strconv.Itoa(len(p.Grid.Header) + 2))
		h.raw(`">No entries.</td></tr>`)
	}
	h.raw(`</tbody></table>`)
}

func entryForm(h *htmlWriter, header []string, api string) {
	if len(header) == 0 {
		return
	}
	h.raw(`<h2>Add or update entry</h2><form class="entry-form" data-api="`)
	h.text(api + "/entries")
	h.raw(`">`)
	for _, label := range header {
		h.raw(`<label>`)
		h.text(label)
		h.raw(` <input name="values"></label>`)
	}
	h.raw(`<label>Row # <input name="row_index" type="number" min="2" placeholder="new"></label>`)
	h.raw(`<button type="submit">Save</button></form>`)
}
