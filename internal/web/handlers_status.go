package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// handleHealth is the liveness probe. A stale snapshot is reported but
// still answers 200: the process is up and serving the last good copy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"store":  st.Store,
		"stale":  st.Stale,
	})
}

// handleStatus reports snapshot, store and write-lock state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// handleReload forces a full reload of the snapshot.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	respondTxn(w, r, s.service.ForceReload(withRequestMetadata(r)))
}

// journalFilter reads category, action and limit query parameters.
func journalFilter(r *http.Request) core.JournalFilter {
	q := r.URL.Query()
	f := core.JournalFilter{
		Category: q.Get("category"),
		Action:   core.JournalAction(q.Get("action")),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	return f
}

// handleAuditLog returns recent journal entries, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	entries := s.service.Journal().Recent(journalFilter(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

var journalColumns = []string{
	"ID", "Timestamp", "Action", "Severity", "Category", "Item ID", "Quantity",
	"Old Value", "New Value", "Success", "Message", "Code", "IP Address", "Duration (ms)",
}

func journalRow(e core.JournalEntry) []string {
	return []string{
		e.ID,
		e.CreatedAt.Format(time.DateTime),
		string(e.Action),
		string(e.Severity),
		e.Category,
		e.ItemID,
		strconv.Itoa(e.Quantity),
		e.OldValue,
		e.NewValue,
		strconv.FormatBool(e.Success),
		e.Message,
		e.Code,
		e.IPAddress,
		strconv.FormatInt(e.Duration.Milliseconds(), 10),
	}
}

// handleAuditLogExport downloads the journal as CSV, or as a workbook with
// ?format=xlsx.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	filter := journalFilter(r)
	if filter.Limit == 0 {
		filter.Limit = s.service.Journal().Len()
	}
	entries := s.service.Journal().Recent(filter)
	stamp := time.Now().Format("20060102_150405")

	if r.URL.Query().Get("format") == "xlsx" {
		s.exportJournalWorkbook(w, r, entries, stamp)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="journal_%s.csv"`, stamp))

	cw := csv.NewWriter(w)
	if err := cw.Write(journalColumns); err != nil {
		return
	}
	for _, e := range entries {
		if err := cw.Write(journalRow(e)); err != nil {
			return
		}
	}
	cw.Flush()
}

func (s *Server) exportJournalWorkbook(w http.ResponseWriter, r *http.Request, entries []core.JournalEntry, stamp string) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Journal"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, journalColumns)
	for _, e := range entries {
		rows = append(rows, journalRow(e))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="journal_%s.xlsx"`, stamp))
	f.Write(w)
}
