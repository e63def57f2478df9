package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"groupledger/internal/middleware"
	"groupledger/internal/service"
)

type createExpenseRequest struct {
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category,omitempty"`
	Frequency    string          `json:"frequency,omitempty"`
	PaidByUserID string          `json:"paidByUserId,omitempty"`
	Split        splitRequest    `json:"split"`
}

type updateExpenseRequest struct {
	Description  *string          `json:"description,omitempty"`
	Category     *string          `json:"category,omitempty"`
	Frequency    *string          `json:"frequency,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	PaidByUserID *string          `json:"paidByUserId,omitempty"`
	Split        *splitRequest    `json:"split,omitempty"`
}

type settleExpenseRequest struct {
	// UserID is the debtor whose allocation is settled; defaults to the
	// caller.
	UserID string `json:"userId,omitempty"`

	// Amount must match the allocation exactly when set; zero or absent
	// settles the full allocation.
	Amount decimal.Decimal `json:"amount,omitempty"`

	Note string `json:"note,omitempty"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	spec, err := req.Split.toSpec()
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	expense, err := s.ledger.CreateExpense(r.Context(), middleware.GetUserID(r.Context()), service.ExpenseInput{
		GroupID:      r.PathValue("groupID"),
		Description:  req.Description,
		Amount:       req.Amount,
		Category:     req.Category,
		Frequency:    req.Frequency,
		PaidByUserID: req.PaidByUserID,
		Split:        spec,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.ledger.ListGroupExpenses(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.ledger.GetExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req updateExpenseRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	update := service.ExpenseUpdate{
		Description:  req.Description,
		Category:     req.Category,
		Frequency:    req.Frequency,
		Amount:       req.Amount,
		PaidByUserID: req.PaidByUserID,
	}
	if req.Split != nil {
		spec, err := req.Split.toSpec()
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		update.Split = spec
	}

	expense, err := s.ledger.UpdateExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"), update)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleSettleExpense(w http.ResponseWriter, r *http.Request) {
	var req settleExpenseRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	expense, err := s.ledger.SettleExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"), req.UserID, req.Amount, req.Note)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, expense)
}

func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.ledger.GetGroupBalances(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, balances)
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.ledger.ListSettlements(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("groupID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"settlements": settlements})
}

func (s *Server) handleUserOwed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owed, err := s.ledger.GetUserOwedAmount(ctx, middleware.GetUserID(ctx), r.PathValue("groupID"), r.PathValue("userID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"userId": r.PathValue("userID"), "owed": owed})
}

func (s *Server) handleUserOwes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owes, err := s.ledger.GetUserOwesAmount(ctx, middleware.GetUserID(ctx), r.PathValue("groupID"), r.PathValue("userID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"userId": r.PathValue("userID"), "owes": owes})
}
