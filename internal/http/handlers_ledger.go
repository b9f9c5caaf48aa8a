package http

import (
	"fmt"
	"io"
	"net/http"

	"moneylog/internal/core"
	"moneylog/internal/exchange"
	"moneylog/internal/ledger"
	applog "moneylog/internal/log"
	"moneylog/internal/report"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Export()
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exchange.FileName(s.today())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxImport))
	if err != nil {
		s.writeError(w, r, applog.OpImport, err)
		return
	}
	if err := s.ledger.ImportDocument(r.Context(), data); err != nil {
		s.writeError(w, r, applog.OpImport, err)
		return
	}
	s.writeSnapshotCounts(w, r, http.StatusOK)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ClearAll(r.Context()); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteSetup(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.CompleteSetup(r.Context()); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSnapshotCounts answers a bulk change with the resulting record counts.
func (s *Server) writeSnapshotCounts(w http.ResponseWriter, r *http.Request, status int) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, status, map[string]int{
		"expenses": len(snap.Expenses),
		"income":   len(snap.Income),
	})
}

// periodFilter returns the range selected by ?period=, or false when the
// query has none.
func (s *Server) periodFilter(r *http.Request) (report.DateRange, bool, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return report.DateRange{}, false, nil
	}
	p, err := report.ParsePeriod(raw)
	if err != nil {
		return report.DateRange{}, false, err
	}
	return report.DateRangeForPeriod(p, s.today()), true, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	rng, filter, err := s.periodFilter(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	expenses := snap.Expenses
	if filter {
		expenses = report.FilterByDateRange(expenses, rng)
	}
	if expenses == nil {
		expenses = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in ledger.NewExpense
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	if err := validateNewExpense(&in); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	rec, err := s.ledger.AddExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch ledger.ExpensePatch
	if err := s.decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := validateExpensePatch(&patch); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	rec, found, err := s.ledger.UpdateExpense(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	if !found {
		s.writeError(w, r, applog.OpUpdate, fmt.Errorf("%w: expense %q", errNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := s.ledger.DeleteExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	if !found {
		s.writeError(w, r, applog.OpDelete, fmt.Errorf("%w: expense %q", errNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	rng, filter, err := s.periodFilter(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	income := snap.Income
	if filter {
		income = report.FilterByDateRange(income, rng)
	}
	if income == nil {
		income = []core.IncomeRecord{}
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var in ledger.NewIncome
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	if err := validateNewIncome(&in); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	rec, err := s.ledger.AddIncome(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch ledger.IncomePatch
	if err := s.decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := validateIncomePatch(&patch); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	rec, found, err := s.ledger.UpdateIncome(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	if !found {
		s.writeError(w, r, applog.OpUpdate, fmt.Errorf("%w: income %q", errNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := s.ledger.DeleteIncome(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	if !found {
		s.writeError(w, r, applog.OpDelete, fmt.Errorf("%w: income %q", errNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
