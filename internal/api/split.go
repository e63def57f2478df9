package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"groupledger/internal/ledger"
	"groupledger/internal/models"
)

// splitRequest is the wire form of a split configuration. Exactly the
// field matching splitType is read; the others are ignored. Monetary
// and percentage values accept JSON strings so clients can stay
// decimal-safe.
type splitRequest struct {
	SplitType    models.SplitType    `json:"splitType"`
	Participants []string            `json:"participants,omitempty"`
	Amounts      []memberAmountJSON  `json:"amounts,omitempty"`
	Percentages  []memberPercentJSON `json:"percentages,omitempty"`
	Shares       []memberSharesJSON  `json:"shares,omitempty"`
}

type memberAmountJSON struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

type memberPercentJSON struct {
	UserID  string          `json:"userId"`
	Percent decimal.Decimal `json:"percent"`
}

type memberSharesJSON struct {
	UserID string `json:"userId"`
	Shares int64  `json:"shares"`
}

// toSpec converts the wire form into the engine's split configuration.
func (s *splitRequest) toSpec() (ledger.SplitSpec, error) {
	switch s.SplitType {
	case models.SplitEqual:
		return ledger.EqualSplit{Participants: s.Participants}, nil
	case models.SplitAmount:
		amounts := make([]ledger.MemberAmount, len(s.Amounts))
		for i, m := range s.Amounts {
			amounts[i] = ledger.MemberAmount{UserID: m.UserID, Amount: m.Amount}
		}
		return ledger.AmountSplit{Amounts: amounts}, nil
	case models.SplitPercentage:
		percents := make([]ledger.MemberPercent, len(s.Percentages))
		for i, m := range s.Percentages {
			percents[i] = ledger.MemberPercent{UserID: m.UserID, Percent: m.Percent}
		}
		return ledger.PercentageSplit{Percents: percents}, nil
	case models.SplitShares:
		shares := make([]ledger.MemberShares, len(s.Shares))
		for i, m := range s.Shares {
			shares[i] = ledger.MemberShares{UserID: m.UserID, Shares: m.Shares}
		}
		return ledger.SharesSplit{Shares: shares}, nil
	default:
		return nil, fmt.Errorf("unknown split type %q", s.SplitType)
	}
}
