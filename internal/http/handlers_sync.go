package http

import (
	"net/http"

	applog "moneylog/internal/log"
)

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		s.writeError(w, r, applog.OpRead, errNoRemote)
		return
	}
	writeJSON(w, http.StatusOK, s.backups.Status())
}

// handleSyncBackup saves the current snapshot now, dropping any pending
// debounced save.
func (s *Server) handleSyncBackup(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		s.writeError(w, r, applog.OpBackup, errNoRemote)
		return
	}
	snap, err := s.ledger.Snapshot()
	if err != nil {
		s.writeError(w, r, applog.OpBackup, err)
		return
	}
	if err := s.backups.SaveNow(r.Context(), snap); err != nil {
		s.writeError(w, r, applog.OpBackup, err)
		return
	}
	writeJSON(w, http.StatusOK, s.backups.Status())
}

// handleSyncRestore replaces the ledger with the remote copy.
func (s *Server) handleSyncRestore(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		s.writeError(w, r, applog.OpRestore, errNoRemote)
		return
	}
	remote, err := s.backups.Restore(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpRestore, err)
		return
	}
	if err := s.ledger.ImportSnapshot(r.Context(), remote.Data); err != nil {
		s.writeError(w, r, applog.OpRestore, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Ledger restored from remote backup",
		applog.FieldExpenses, len(remote.Data.Expenses),
		applog.FieldIncome, len(remote.Data.Income))
	writeJSON(w, http.StatusOK, map[string]any{
		"modifiedTime": remote.ModifiedTime,
		"expenses":     len(remote.Data.Expenses),
		"income":       len(remote.Data.Income),
	})
}
