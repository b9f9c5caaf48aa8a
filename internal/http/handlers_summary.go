package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	applog "moneylog/internal/log"
	"moneylog/internal/report"
	"moneylog/internal/services"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := report.ParsePeriod(strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	d, err := s.summaries.Dashboard(period, s.today())
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleTrend returns the cashflow series for ?months= (default six,
// clamped by the summary service).
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months := services.DashboardTrendSize
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, applog.OpRead, fmt.Errorf("%w: months must be a positive integer", errBadRequest))
			return
		}
		months = n
	}
	points, err := s.summaries.Cashflow(months, s.today())
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
