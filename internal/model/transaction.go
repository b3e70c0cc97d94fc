// Package model defines the core domain models used throughout the application.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// TransactionType indicates whether a transaction is income or expense.
type TransactionType string

const (
	// TypeIncome represents money coming in.
	TypeIncome TransactionType = "income"
	// TypeExpense represents money going out.
	TypeExpense TransactionType = "expense"
)

// ParseTransactionType normalizes a free-form type string into a
// TransactionType. The second return value reports whether the input named
// one of the two known types.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TypeIncome):
		return TypeIncome, true
	case string(TypeExpense):
		return TypeExpense, true
	default:
		return "", false
	}
}

// RawClassification is the untrusted payload returned by the external
// classifier. Every field is attacker/model-controlled text and must pass
// through the validator before any downstream code touches it.
type RawClassification struct {
	Type       string `json:"type"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Date       string `json:"date"`
	Comment    string `json:"comment"`
	SourceText string `json:"source_text"`
}

// UnmarshalJSON decodes a classifier response, tolerating the amount arriving
// as either a JSON number or a quoted string. Models flip between the two.
func (r *RawClassification) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type       string     `json:"type"`
		Category   string     `json:"category"`
		Amount     flexString `json:"amount"`
		Currency   string     `json:"currency"`
		Date       string     `json:"date"`
		Comment    string     `json:"comment"`
		SourceText string     `json:"source_text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Type = aux.Type
	r.Category = aux.Category
	r.Amount = string(aux.Amount)
	r.Currency = aux.Currency
	r.Date = aux.Date
	r.Comment = aux.Comment
	r.SourceText = aux.SourceText
	return nil
}

// flexString accepts a JSON string, number, or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ValidatedTransaction is a fully checked transaction ready for ledger
// commit. Instances are only constructed by the validator and are immutable
// once built.
type ValidatedTransaction struct {
	Date         time.Time
	Type         TransactionType
	Category     string
	Currency     string
	MonthLabel   string
	Comment      string
	Amount       float64
	DateInferred bool
}
