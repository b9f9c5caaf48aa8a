package http

import (
	"fmt"
	"net/http"

	"moneylog/internal/categories"
	"moneylog/internal/core"
	"moneylog/internal/ledger"
	applog "moneylog/internal/log"
	"moneylog/internal/report"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	budgets := snap.Budgets
	if budgets == nil {
		budgets = core.BudgetMap{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

// handleBudgetProgress reports spending against each budget for the
// current month.
func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	monthly := report.MonthlyExpenses(snap.Expenses, s.today())
	writeJSON(w, http.StatusOK, report.BudgetProgress(monthly, snap.Budgets))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(r.PathValue("category"))
	if category == "" {
		s.writeError(w, r, applog.OpUpdate, core.ErrEmptyCategory)
		return
	}
	var req budgetRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	if err := s.ledger.SetBudget(r.Context(), category, *req.Amount); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "amount": *req.Amount})
}

func (s *Server) handleRemoveBudget(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	found, err := s.ledger.RemoveBudget(r.Context(), category)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	if !found {
		s.writeError(w, r, applog.OpDelete, fmt.Errorf("%w: budget %q", errNotFound, category))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryView struct {
	core.Category
	Kind       categories.Kind `json:"kind"`
	Predefined bool            `json:"predefined"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	all := categories.All(snap.CustomCategories)
	out := make([]categoryView, 0, len(all))
	for _, c := range all {
		out = append(out, categoryView{
			Category:   c,
			Kind:       categories.KindOf(c.ID, snap.CustomCategories),
			Predefined: categories.IsPredefined(c.ID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddCategories(w http.ResponseWriter, r *http.Request) {
	var req categoriesRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	cats, err := req.categories()
	if err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	added, err := s.ledger.AddCustomCategories(r.Context(), cats)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	if added == nil {
		added = []core.Category{}
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if categories.IsPredefined(id) {
		s.writeError(w, r, applog.OpDelete, fmt.Errorf("%w: %q is a predefined category", errBadRequest, id))
		return
	}
	found, err := s.ledger.RemoveCustomCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	if !found {
		s.writeError(w, r, applog.OpDelete, fmt.Errorf("%w: category %q", errNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categories.PaymentMethods())
}

func handleIncomeSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categories.IncomeSources())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settings":      snap.Settings,
		"setupComplete": snap.SetupComplete,
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch ledger.SettingsPatch
	if err := s.decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := validateSettingsPatch(&patch); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	settings, err := s.ledger.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
