package intent

import "errors"

// Intent classifies what the customer wants the storefront to do.
type Intent string

const (
	IntentOrderFood        Intent = "order_food"
	IntentSearchRestaurant Intent = "search_restaurant"
	IntentCheckStatus      Intent = "check_status"
	IntentUnknown          Intent = "unknown"
)

// ParseIntent maps a raw model intent string onto the closed set.
// Anything outside the set is coerced to IntentUnknown rather than
// passed through.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentOrderFood, IntentSearchRestaurant, IntentCheckStatus, IntentUnknown:
		return Intent(s)
	default:
		return IntentUnknown
	}
}

// OrderItem is one requested dish with a positive quantity.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Entities carries the slots extracted from the utterance. Absent slots
// stay zero-valued.
type Entities struct {
	Restaurant string      `json:"restaurant,omitempty"`
	Items      []OrderItem `json:"items,omitempty"`
	Location   string      `json:"location,omitempty"`
}

// Result is the structured outcome of analyzing one utterance.
type Result struct {
	Intent     Intent   `json:"intent"`
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"confidence"`
	Language   string   `json:"language"`
	Response   string   `json:"response"`
}

// Error taxonomy surfaced to callers. Wrapped with %w so errors.Is works
// across package boundaries.
var (
	ErrQuotaExceeded      = errors.New("intent analysis quota exceeded")
	ErrInvalidCredentials = errors.New("intent analysis credentials rejected")
	ErrAnalysisFailed     = errors.New("intent analysis failed")
)
