// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneylog/internal/backup"
	"moneylog/internal/core"
	"moneylog/internal/ledger"
	applog "moneylog/internal/log"
	"moneylog/internal/middleware/ratelimit"
	"moneylog/internal/middleware/security"
	"moneylog/internal/middleware/trace"
	"moneylog/internal/report"
	"moneylog/internal/services"
)

const (
	defaultMaxBodyBytes   = 1 << 20
	defaultMaxImportBytes = 10 << 20
)

// Ledger is the part of the ledger store the handlers drive.
type Ledger interface {
	State() ledger.State
	Snapshot() (core.Snapshot, error)
	Export() ([]byte, error)

	AddExpense(ctx context.Context, in ledger.NewExpense) (core.ExpenseRecord, error)
	UpdateExpense(ctx context.Context, id string, patch ledger.ExpensePatch) (core.ExpenseRecord, bool, error)
	DeleteExpense(ctx context.Context, id string) (bool, error)
	AddIncome(ctx context.Context, in ledger.NewIncome) (core.IncomeRecord, error)
	UpdateIncome(ctx context.Context, id string, patch ledger.IncomePatch) (core.IncomeRecord, bool, error)
	DeleteIncome(ctx context.Context, id string) (bool, error)
	SetBudget(ctx context.Context, category string, amount core.Money) error
	RemoveBudget(ctx context.Context, category string) (bool, error)
	AddCustomCategories(ctx context.Context, cats []core.Category) ([]core.Category, error)
	RemoveCustomCategory(ctx context.Context, id string) (bool, error)
	UpdateSettings(ctx context.Context, patch ledger.SettingsPatch) (core.Settings, error)
	ImportSnapshot(ctx context.Context, snap core.Snapshot) error
	ImportDocument(ctx context.Context, data []byte) error
	ClearAll(ctx context.Context) error
	CompleteSetup(ctx context.Context) error
}

var _ Ledger = (*ledger.Store)(nil)

type Summaries interface {
	Dashboard(period report.Period, now core.Date) (services.Dashboard, error)
	Cashflow(months int, now core.Date) ([]report.CashflowPoint, error)
}

var _ Summaries = (*services.SummaryService)(nil)

// Backups is the remote backup session. It may be nil when no remote is
// configured.
type Backups interface {
	Status() backup.Status
	SaveNow(ctx context.Context, snap core.Snapshot) error
	Restore(ctx context.Context) (*backup.RemoteSnapshot, error)
}

var _ Backups = (*backup.Syncer)(nil)

type Options struct {
	Ledger    Ledger
	Summaries Summaries
	Backups   Backups
	Logger    *applog.Logger
	// Now defaults to time.Now. "Today" for summaries is its local date.
	Now       func() time.Time
	RateLimit ratelimit.Config

	MaxBodyBytes   int64
	MaxImportBytes int64
}

type Server struct {
	http.Server
	ledger    Ledger
	summaries Summaries
	backups   Backups
	logger    *applog.Logger
	now       func() time.Time

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	clientIP *security.ClientIP

	maxBody   int64
	maxImport int64

	shutdownOnce sync.Once
}

func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.MaxImportBytes <= 0 {
		opts.MaxImportBytes = defaultMaxImportBytes
	}

	s := &Server{
		ledger:    opts.Ledger,
		summaries: opts.Summaries,
		backups:   opts.Backups,
		logger:    opts.Logger.WithComponent(applog.ComponentHTTP),
		now:       opts.Now,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		tracer:    trace.NewMiddleware(),
		clientIP:  security.NewClientIP(),
		maxBody:   opts.MaxBodyBytes,
		maxImport: opts.MaxImportBytes,
	}

	var h http.Handler = s.routes()
	h = s.limiter.Middleware(s.clientIP.Extract, s.handleRateLimited,
		http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = applog.Middleware(opts.Logger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/snapshot", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.HandleFunc("POST /api/setup/complete", s.handleCompleteSetup)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/income", s.handleListIncome)
	mux.HandleFunc("POST /api/income", s.handleCreateIncome)
	mux.HandleFunc("PUT /api/income/{id}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /api/income/{id}", s.handleDeleteIncome)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/budgets/progress", s.handleBudgetProgress)
	mux.HandleFunc("PUT /api/budgets/{category}", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets/{category}", s.handleRemoveBudget)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategories)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleRemoveCategory)
	mux.HandleFunc("GET /api/payment-methods", handlePaymentMethods)
	mux.HandleFunc("GET /api/income-sources", handleIncomeSources)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PATCH /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trend", s.handleTrend)

	mux.HandleFunc("GET /api/sync/status", s.handleSyncStatus)
	mux.HandleFunc("POST /api/sync/backup", s.handleSyncBackup)
	mux.HandleFunc("POST /api/sync/restore", s.handleSyncRestore)

	return mux
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.limiter.Stop)
	return s.Server.Shutdown(ctx)
}

// TotalRequests is the number of requests traced since start.
func (s *Server) TotalRequests() int64 {
	return s.tracer.TotalRequests()
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	state := s.ledger.State()
	status := http.StatusOK
	if state != ledger.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": state.String()})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.Extract(r),
		applog.FieldRequestID, trace.GetRequestID(r.Context()))
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error:     "rate limit exceeded, try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}
