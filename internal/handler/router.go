package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moneypro/internal/middleware"
)

type Handlers struct {
	System       *SystemHandler
	Auth         *AuthHandler
	Transactions *TransactionHandler
	Referrals    *ReferralHandler
	Investments  *InvestmentHandler
	Admin        *AdminHandler
}

// Middleware groups the request pipeline. Nil entries are skipped.
type Middleware struct {
	// Global runs on every matched route, in order.
	Global       []mux.MiddlewareFunc
	Authenticate mux.MiddlewareFunc
	// API runs on authenticated routes after Authenticate.
	API         []mux.MiddlewareFunc
	Idempotency mux.MiddlewareFunc
	Audit       mux.MiddlewareFunc
}

// NewRouter registers every route. Wrap the result with middleware.CORS so
// preflight requests for unknown methods still get CORS headers.
func NewRouter(h Handlers, mw Middleware) *mux.Router {
	r := mux.NewRouter()
	for _, m := range mw.Global {
		if m != nil {
			r.Use(m)
		}
	}

	r.HandleFunc("/health", h.System.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.System.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public
	r.HandleFunc("/api/v1/auth/register", h.Auth.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/auth/login", h.Auth.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/plans", h.Investments.ListPlans).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/plans/calculate", h.Investments.CalculateProfit).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/referrals/validate/{code}", h.Referrals.Validate).Methods(http.MethodGet)

	// Authenticated
	api := r.PathPrefix("/api/v1").Subrouter()
	if mw.Authenticate != nil {
		api.Use(mw.Authenticate)
	}
	for _, m := range mw.API {
		if m != nil {
			api.Use(m)
		}
	}
	idempotent := func(f http.HandlerFunc) http.Handler {
		if mw.Idempotency == nil {
			return f
		}
		return mw.Idempotency(f)
	}

	api.HandleFunc("/auth/logout", h.Auth.Logout).Methods(http.MethodPost)
	api.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/me/totp", h.Auth.EnrolTOTP).Methods(http.MethodPost)
	api.HandleFunc("/me/totp/confirm", h.Auth.ConfirmTOTP).Methods(http.MethodPost)

	api.HandleFunc("/transactions", h.Transactions.List).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", h.Transactions.Get).Methods(http.MethodGet)
	api.Handle("/deposits", idempotent(h.Transactions.CreateDeposit)).Methods(http.MethodPost)
	api.Handle("/withdrawals", idempotent(h.Transactions.CreateWithdrawal)).Methods(http.MethodPost)

	api.HandleFunc("/referrals", h.Referrals.Summary).Methods(http.MethodGet)
	api.HandleFunc("/referrals/bonuses", h.Referrals.Bonuses).Methods(http.MethodGet)
	api.HandleFunc("/referrals/link", h.Referrals.Link).Methods(http.MethodGet)

	api.HandleFunc("/investments", h.Investments.List).Methods(http.MethodGet)
	api.Handle("/investments", idempotent(h.Investments.Invest)).Methods(http.MethodPost)

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	if mw.Audit != nil {
		admin.Use(mw.Audit)
	}

	admin.HandleFunc("/stats", h.Admin.Stats).Methods(http.MethodGet)
	admin.HandleFunc("/users", h.Admin.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/balance", h.Admin.AdjustBalance).Methods(http.MethodPost)
	admin.HandleFunc("/transactions", h.Admin.ListTransactions).Methods(http.MethodGet)
	admin.HandleFunc("/transactions/{id}/review", h.Admin.Review).Methods(http.MethodPost)
	admin.HandleFunc("/deposits/{id}/approve", h.Admin.ApproveDeposit).Methods(http.MethodPost)
	admin.HandleFunc("/deposits/{id}/reject", h.Admin.RejectDeposit).Methods(http.MethodPost)
	admin.HandleFunc("/withdrawals/{id}/approve", h.Admin.ApproveWithdrawal).Methods(http.MethodPost)
	admin.HandleFunc("/withdrawals/{id}/reject", h.Admin.RejectWithdrawal).Methods(http.MethodPost)
	admin.HandleFunc("/commission-rules", h.Admin.ListCommissionRules).Methods(http.MethodGet)
	admin.HandleFunc("/commission-rules", h.Admin.CreateCommissionRule).Methods(http.MethodPost)
	admin.HandleFunc("/commission-rules/{id}", h.Admin.UpdateCommissionRule).Methods(http.MethodPut)
	admin.HandleFunc("/plans", h.Admin.ListPlans).Methods(http.MethodGet)
	admin.HandleFunc("/plans", h.Admin.CreatePlan).Methods(http.MethodPost)
	admin.HandleFunc("/plans/{id}", h.Admin.UpdatePlan).Methods(http.MethodPut)

	return r
}
