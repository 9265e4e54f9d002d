package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
	"github.com/eaglebank/ledger/shared/xerrors"
)

// LedgerCommander defines the write-side operations used by LedgerHandler.
type LedgerCommander interface {
	OpenAccount(context.Context, cqrs.OpenAccountCommand) (*models.AccountView, error)
	Deposit(context.Context, cqrs.DepositCommand) (*models.BalanceView, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (*models.BalanceView, error)
	AddInterest(context.Context, cqrs.AddInterestCommand) (*models.BalanceView, error)
}

// LedgerQuerier defines the read-side operations used by LedgerHandler.
type LedgerQuerier interface {
	GetBalance(cqrs.GetBalanceQuery) (*models.BalanceView, error)
}

// LedgerHandler handles account and balance HTTP requests.
type LedgerHandler struct {
	commands LedgerCommander
	queries  LedgerQuerier
}

func NewLedgerHandler(commands LedgerCommander, queries LedgerQuerier) *LedgerHandler {
	return &LedgerHandler{commands: commands, queries: queries}
}

// Register mounts the ledger routes under rg.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.OpenAccount)
	rg.GET("/:accountId/balance", h.GetBalance)
	rg.POST("/:accountId/deposit", h.Deposit)
	rg.POST("/:accountId/withdraw", h.Withdraw)
	rg.POST("/:accountId/interest", h.AddInterest)
}

func (h *LedgerHandler) OpenAccount(c *gin.Context) {
	view, err := h.commands.OpenAccount(c.Request.Context(), cqrs.OpenAccountCommand{})
	if err != nil {
		respondWithLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.OpenAccountResponse{AccountID: view.AccountID})
}

func (h *LedgerHandler) GetBalance(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}

	view, err := h.queries.GetBalance(cqrs.GetBalanceQuery{AccountID: accountID})
	if err != nil {
		respondWithLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *LedgerHandler) Deposit(c *gin.Context) {
	accountID, amount, ok := h.bindAmount(c)
	if !ok {
		return
	}

	view, err := h.commands.Deposit(c.Request.Context(), cqrs.DepositCommand{AccountID: accountID, Amount: amount})
	if err != nil {
		respondWithLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *LedgerHandler) Withdraw(c *gin.Context) {
	accountID, amount, ok := h.bindAmount(c)
	if !ok {
		return
	}

	view, err := h.commands.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{AccountID: accountID, Amount: amount})
	if err != nil {
		respondWithLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *LedgerHandler) AddInterest(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}

	var req models.InterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.AddInterest(c.Request.Context(), cqrs.AddInterestCommand{AccountID: accountID, Rate: *req.Rate})
	if err != nil {
		respondWithLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// accountParam rejects ids that could never have been issued. They get the
// same 404 as unknown ones.
func accountParam(c *gin.Context) (string, bool) {
	accountID := c.Param("accountId")
	if !utils.ValidateAccountID(accountID) {
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
		return "", false
	}
	return accountID, true
}

func (h *LedgerHandler) bindAmount(c *gin.Context) (string, money.Amount, bool) {
	accountID, ok := accountParam(c)
	if !ok {
		return "", 0, false
	}

	var req models.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return "", 0, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return "", 0, false
	}

	amount, err := money.FromDecimal(*req.Amount)
	if err != nil {
		// An unknown account outranks a bad amount.
		if _, lookupErr := h.queries.GetBalance(cqrs.GetBalanceQuery{AccountID: accountID}); errors.Is(lookupErr, xerrors.ErrAccountNotFound) {
			err = lookupErr
		}
		respondWithLedgerError(c, err)
		return "", 0, false
	}
	return accountID, amount, true
}

func respondWithLedgerError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, xerrors.ErrAccountNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
	case errors.Is(err, xerrors.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Insufficient funds to process transaction")
	case errors.Is(err, xerrors.ErrBalanceOverflow):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Resulting balance is too large")
	case errors.Is(err, xerrors.ErrInvalidAmount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
	case errors.Is(err, xerrors.ErrInvalidInterestRate):
		middleware.RespondWithError(c, http.StatusBadRequest, "Interest rate must be between 0 and 100")
	case errors.Is(err, context.DeadlineExceeded):
		middleware.RespondWithError(c, http.StatusGatewayTimeout, "Request timed out")
	case errors.Is(err, context.Canceled):
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Request cancelled")
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, "Unexpected error")
	}
}
