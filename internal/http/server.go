// Package http serves the JSON API: accounts, categories, transactions,
// aggregations and per-owner settings. Aggregation reads go through a small
// LRU response cache invalidated whenever the owner mutates data.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/cache"
	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/middleware/ratelimit"
	"moneta/internal/middleware/security"
	"moneta/internal/middleware/trace"
	"moneta/internal/services"
)

// Service surfaces the handlers depend on. The concrete services in
// internal/services implement them.
type (
	AccountService interface {
		CreateAccount(ctx context.Context, owner, name string, currency core.Currency) (core.Account, error)
		GetAccount(ctx context.Context, owner string, id uuid.UUID) (core.Account, error)
		ListAccounts(ctx context.Context, owner string) ([]core.Account, error)
	}

	CategoryService interface {
		CreateCategory(ctx context.Context, owner, name string) (core.Category, error)
		ListCategories(ctx context.Context, owner string) ([]core.Category, error)
		DeleteCategory(ctx context.Context, owner string, id uuid.UUID) error
	}

	TransactionService interface {
		CreateTransaction(ctx context.Context, owner string, accountID uuid.UUID, req services.CreateTransactionRequest) (core.Transaction, error)
		GetTransaction(ctx context.Context, owner string, id uuid.UUID) (core.Transaction, error)
		ListTransactions(ctx context.Context, owner string, f core.TransactionFilter) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, owner string, id uuid.UUID) error
	}

	AggregationService interface {
		GetSum(ctx context.Context, owner string, f core.AggregationFilter) (decimal.Decimal, error)
		GetTopFiveIncomes(ctx context.Context, owner string, f core.AggregationFilter) ([]core.CategorySum, error)
		GetTopFiveExpenses(ctx context.Context, owner string, f core.AggregationFilter) ([]core.CategorySum, error)
	}

	SettingsService interface {
		GetSettings(ctx context.Context, owner string) (core.UserSettings, error)
		UpdateSettings(ctx context.Context, s core.UserSettings) error
	}
)

// Services bundles everything the server needs.
type Services struct {
	Accounts     AccountService
	Categories   CategoryService
	Transactions TransactionService
	Aggregations AggregationService
	Settings     SettingsService
}

type Server struct {
	http.Server
	services Services
	logger   *log.Logger
	limiter  *ratelimit.Limiter

	// aggregation response cache: entries are keyed by owner, a per-owner
	// generation counter, and the request URI; bumping the generation on a
	// mutation orphans the owner's old entries, which then age out of the LRU
	aggCache *cache.LRU[[]byte]
	cacheMgr *cache.Manager
	genMu    sync.Mutex
	gen      map[string]uint64

	shutdownOnce sync.Once
}

func NewServer(addr string, svcs Services, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		services: svcs,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		aggCache: cache.NewLRU[[]byte](200, 5*time.Minute),
		cacheMgr: cache.NewManager(),
		gen:      make(map[string]uint64),
	}
	s.cacheMgr.Register(s.aggCache)
	s.cacheMgr.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("GET /accounts/{id}", s.handleGetAccount)

	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("POST /accounts/{id}/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /aggregations/sum", s.handleSum)
	mux.HandleFunc("GET /aggregations/top-incomes", s.handleTopIncomes)
	mux.HandleFunc("GET /aggregations/top-expenses", s.handleTopExpenses)

	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("PUT /settings", s.handleUpdateSettings)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	traced := trace.NewMiddleware(extractClientIP, logger)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(extractClientIP)(handler)
	handler = headers.Middleware(handler)
	handler = traced.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheMgr.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"checks": map[string]any{
			"cache_entries":        s.aggCache.Size(),
			"rate_limiter_clients": s.limiter.ActiveClients(),
		},
	})
}

// --- aggregation response cache ---

func (s *Server) cacheKey(owner string, r *http.Request) string {
	s.genMu.Lock()
	gen := s.gen[owner]
	s.genMu.Unlock()
	return owner + "|" + strconv.FormatUint(gen, 10) + "|" + r.URL.RequestURI()
}

// invalidateOwner orphans every cached aggregation for the owner.
func (s *Server) invalidateOwner(owner string) {
	s.genMu.Lock()
	s.gen[owner]++
	s.genMu.Unlock()
}

// serveCachedAggregation answers from the cache or computes, caches and
// writes the JSON body.
func (s *Server) serveCachedAggregation(w http.ResponseWriter, r *http.Request, owner string, compute func() (any, error)) {
	key := s.cacheKey(owner, r)
	if body, ok := s.aggCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Aggregation cache hit", log.FieldPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	result, err := compute()
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		writeError(w, err)
		return
	}
	s.aggCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
