package query

import (
	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/models"
)

// LedgerQueryService serves reads straight from the in-memory ledger.
type LedgerQueryService struct {
	ledger ledger.Ledger
}

func NewLedgerQueryService(l ledger.Ledger) *LedgerQueryService {
	return &LedgerQueryService{ledger: l}
}

func (s *LedgerQueryService) GetBalance(q cqrs.GetBalanceQuery) (*models.BalanceView, error) {
	balance, err := s.ledger.GetBalance(q.AccountID)
	if err != nil {
		return nil, err
	}
	return models.NewBalanceView(q.AccountID, balance), nil
}
