package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// QuoteStatus represents the status of a quote
type QuoteStatus int

const (
	QuoteStatusDraft    QuoteStatus = 0
	QuoteStatusSent     QuoteStatus = 1
	QuoteStatusApproved QuoteStatus = 2
	QuoteStatusRejected QuoteStatus = 3
	QuoteStatusExpired  QuoteStatus = 4
)

var quoteStatusNames = [...]string{"draft", "sent", "approved", "rejected", "expired"}

func (s QuoteStatus) String() string {
	if int(s) < 0 || int(s) >= len(quoteStatusNames) {
		return "draft"
	}
	return quoteStatusNames[s]
}

// IsTerminal reports whether no further transition is possible
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusApproved || s == QuoteStatusRejected
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Resending an expired or already sent quote moves it back to sent.
func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return next == QuoteStatusSent
	case QuoteStatusSent:
		return next == QuoteStatusSent || next == QuoteStatusApproved ||
			next == QuoteStatusRejected || next == QuoteStatusExpired
	case QuoteStatusExpired:
		return next == QuoteStatusSent
	}
	return false
}

// ParseQuoteStatus converts a status name to a QuoteStatus
func ParseQuoteStatus(str string) (QuoteStatus, error) {
	for i, name := range quoteStatusNames {
		if name == str {
			return QuoteStatus(i), nil
		}
	}
	return QuoteStatusDraft, fmt.Errorf("unknown quote status %q", str)
}

func (s QuoteStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *QuoteStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = QuoteStatus(i)
		return nil
	}
	parsed, err := ParseQuoteStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s QuoteStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *QuoteStatus) Scan(value interface{}) error {
	if value == nil {
		*s = QuoteStatusDraft
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = QuoteStatus(v)
	case int:
		*s = QuoteStatus(v)
	}
	return nil
}
