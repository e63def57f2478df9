// Package api exposes the ledger services over a JSON HTTP API.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"groupledger/internal/auth"
	"groupledger/internal/middleware"
	"groupledger/internal/service"
)

// Server routes HTTP requests onto the application services.
type Server struct {
	auth   *service.AuthService
	groups *service.GroupService
	ledger *service.GroupLedgerService
	tokens *auth.JWTManager
}

// New creates an API server over the given services.
func New(authSvc *service.AuthService, groups *service.GroupService, ledger *service.GroupLedgerService, tokens *auth.JWTManager) *Server {
	return &Server{auth: authSvc, groups: groups, ledger: ledger, tokens: tokens}
}

// Handler builds the routing table and wraps it with the logging and
// metrics middleware. All routes under /api except registration and
// login require a Bearer token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(s.tokens, h)
	}

	mux.Handle("POST /api/groups", protected(s.handleCreateGroup))
	mux.Handle("GET /api/groups", protected(s.handleListGroups))
	mux.Handle("GET /api/groups/{groupID}", protected(s.handleGetGroup))
	mux.Handle("PUT /api/groups/{groupID}", protected(s.handleUpdateGroup))
	mux.Handle("DELETE /api/groups/{groupID}", protected(s.handleDeleteGroup))
	mux.Handle("POST /api/groups/{groupID}/members", protected(s.handleAddMember))
	mux.Handle("DELETE /api/groups/{groupID}/members/{userID}", protected(s.handleRemoveMember))

	mux.Handle("POST /api/groups/{groupID}/expenses", protected(s.handleCreateExpense))
	mux.Handle("GET /api/groups/{groupID}/expenses", protected(s.handleListExpenses))
	mux.Handle("GET /api/expenses/{expenseID}", protected(s.handleGetExpense))
	mux.Handle("PATCH /api/expenses/{expenseID}", protected(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{expenseID}", protected(s.handleDeleteExpense))
	mux.Handle("POST /api/expenses/{expenseID}/settle", protected(s.handleSettleExpense))

	mux.Handle("GET /api/groups/{groupID}/balances", protected(s.handleGroupBalances))
	mux.Handle("GET /api/groups/{groupID}/settlements", protected(s.handleListSettlements))
	mux.Handle("GET /api/groups/{groupID}/members/{userID}/owed", protected(s.handleUserOwed))
	mux.Handle("GET /api/groups/{groupID}/members/{userID}/owes", protected(s.handleUserOwes))

	return middleware.Logging(middleware.Metrics(mux))
}
