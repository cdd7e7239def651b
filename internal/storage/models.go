package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SeriesRecord is a stored order trajectory. Payload holds the JSON encoded
// channels exactly as ingested.
type SeriesRecord struct {
	OrderID   string
	Points    int
	Payload   json.RawMessage
	CreatedAt time.Time
}

// DecisionRecord persists the outcome of evaluating one order.
type DecisionRecord struct {
	OrderID        string
	Decision       string
	IsCorrect      bool
	HoldScore      decimal.Decimal
	CloseScore     decimal.Decimal
	Time1Value     decimal.Decimal
	Time2Value     decimal.Decimal
	ConsensusValue decimal.Decimal
	TrendLabel     string
	Neighbors      json.RawMessage
	EvaluatedAt    time.Time
}

// OrderUpdateRecord carries revised entry and exit prices.
type OrderUpdateRecord struct {
	OrderID    string
	Direction  string
	StartPrice decimal.Decimal
	EndPrice   decimal.Decimal
	UpdatedAt  time.Time
}

// AlertRecord captures an emitted alert for de-duplication/auditing.
type AlertRecord struct {
	ID        int64
	OrderID   string
	Decision  string
	Channels  []string
	CreatedAt time.Time
}
