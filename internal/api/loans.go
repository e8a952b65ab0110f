package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// LoansHandler handles circulation endpoints.
type LoansHandler struct {
	DB     *sql.DB
	Policy model.Policy
}

type borrowRequest struct {
	BookID int64 `json:"book_id"`
}

type borrowResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	LoanID  int64      `json:"loan_id"`
	Status  string     `json:"status"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

type renewResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	NewDueDate time.Time `json:"new_due_date"`
	RenewTimes int       `json:"renew_times"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Borrow handles POST /api/loans.
func (h *LoansHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID <= 0 {
		jsonError(w, http.StatusBadRequest, "book id required")
		return
	}

	loan, err := store.BorrowBook(r.Context(), h.DB, claims.UserID, req.BookID, h.Policy, time.Now())
	if err != nil {
		lendingFailure(w, err)
		return
	}

	resp := borrowResponse{
		Success: true,
		LoanID:  loan.ID,
		Status:  loan.Status,
	}
	if loan.Status == model.LoanStatusRequested {
		resp.Message = "loan requested, awaiting approval"
	} else {
		resp.Message = fmt.Sprintf("borrowed until %s", loan.DueDate.Format("2006-01-02"))
		due := loan.DueDate
		resp.DueDate = &due
	}

	slog.Info("loan opened", "loan", loan.ID, "book", loan.BookTitle, "user", claims.Username, "status", loan.Status)
	jsonResponse(w, http.StatusCreated, resp)
}

// ListMine handles GET /api/loans. Overdue fines are brought up to date
// before the list is returned so members always see current amounts.
func (h *LoansHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	open, err := store.ListOpenLoansForUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to list open loans", "error", err, "user", claims.UserID)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	for _, loan := range open {
		if loan.IsOverdue(now) {
			if _, err := store.AccrueFine(r.Context(), h.DB, loan.ID, h.Policy, now); err != nil {
				slog.Error("failed to accrue fine", "error", err, "loan", loan.ID)
			}
		}
	}

	loans, err := store.ListLoansForUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to list loans", "error", err, "user", claims.UserID)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, loans)
}

// ListOpen handles GET /api/loans/active, the open-loans view.
func (h *LoansHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	loans, err := store.ListOpenLoansForUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to list open loans", "error", err, "user", claims.UserID)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, loans)
}

// Get handles GET /api/loans/{id}. Members can only read their own loans;
// librarians can read any.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.GetLoan(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if loan == nil {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}
	if loan.UserID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleLibrarian) {
		jsonError(w, http.StatusForbidden, "not your loan")
		return
	}

	now := time.Now()
	if loan.IsOverdue(now) {
		if _, err := store.AccrueFine(r.Context(), h.DB, loan.ID, h.Policy, now); err != nil {
			slog.Error("failed to accrue fine", "error", err, "loan", loan.ID)
		}
		loan, err = store.GetLoan(r.Context(), h.DB, id)
		if err != nil || loan == nil {
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	jsonResponse(w, http.StatusOK, loan)
}

// Renew handles POST /api/loans/{id}/renew.
func (h *LoansHandler) Renew(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.RenewLoan(r.Context(), h.DB, claims.UserID, id, h.Policy, time.Now())
	if err != nil {
		lendingFailure(w, err)
		return
	}

	slog.Info("loan renewed", "loan", loan.ID, "user", claims.Username, "due", loan.DueDate)
	jsonResponse(w, http.StatusOK, renewResponse{
		Success:    true,
		Message:    fmt.Sprintf("renewed until %s", loan.DueDate.Format("2006-01-02")),
		NewDueDate: loan.DueDate,
		RenewTimes: loan.RenewTimes,
	})
}

// Return handles POST /api/loans/{id}/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.ReturnBook(r.Context(), h.DB, claims.UserID, id, h.Policy, time.Now())
	if err != nil {
		lendingFailure(w, err)
		return
	}

	msg := fmt.Sprintf("returned %q", loan.BookTitle)
	if loan.FineCents > 0 && !loan.FinePaid {
		msg = fmt.Sprintf("returned %q, fine due: %d.%02d", loan.BookTitle, loan.FineCents/100, loan.FineCents%100)
	}

	slog.Info("loan returned", "loan", loan.ID, "user", claims.Username, "fine_cents", loan.FineCents)
	jsonResponse(w, http.StatusOK, actionResponse{Success: true, Message: msg})
}

// PayFine handles POST /api/loans/{id}/fine.
func (h *LoansHandler) PayFine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	if err := store.PayFine(r.Context(), h.DB, claims.UserID, id, time.Now()); err != nil {
		lendingFailure(w, err)
		return
	}

	slog.Info("fine paid", "loan", id, "user", claims.Username)
	jsonResponse(w, http.StatusOK, actionResponse{Success: true, Message: "fine paid"})
}

// ListPending handles GET /api/loans/pending for librarians.
func (h *LoansHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	loans, err := store.ListPendingLoans(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list pending loans", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, loans)
}

// Approve handles POST /api/loans/{id}/approve for librarians. The loan
// period starts at approval, not at request time.
func (h *LoansHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.ApproveLoan(r.Context(), h.DB, id, h.Policy, time.Now())
	if err != nil {
		lendingFailure(w, err)
		return
	}

	slog.Info("loan approved", "loan", loan.ID, "by", claims.Username, "due", loan.DueDate)
	jsonResponse(w, http.StatusOK, actionResponse{
		Success: true,
		Message: fmt.Sprintf("approved, due %s", loan.DueDate.Format("2006-01-02")),
	})
}

// Reject handles POST /api/loans/{id}/reject for librarians. The copy held
// by the request goes back into circulation.
func (h *LoansHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.RejectLoan(r.Context(), h.DB, id)
	if err != nil {
		lendingFailure(w, err)
		return
	}

	slog.Info("loan rejected", "loan", loan.ID, "by", claims.Username)
	jsonResponse(w, http.StatusOK, actionResponse{Success: true, Message: "request rejected"})
}
