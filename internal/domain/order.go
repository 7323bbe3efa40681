package domain

// MatchOutcome is the fulfillment decision derived from a MatchResult.
type MatchOutcome string

const (
	MatchOutcomeFulfilled         MatchOutcome = "FULFILLED"
	MatchOutcomeRejected          MatchOutcome = "REJECTED"
	MatchOutcomePartiallyRejected MatchOutcome = "PARTIALLY_REJECTED"
)

// MatchResult partitions requested items into those found on the menu and
// those that are missing. Both keep request order and original spelling.
type MatchResult struct {
	Available []string
	Missing   []string
}

// Outcome applies the strict policy: any missing item blocks the order.
func (r MatchResult) Outcome() MatchOutcome {
	switch {
	case len(r.Missing) == 0:
		return MatchOutcomeFulfilled
	case len(r.Available) == 0:
		return MatchOutcomeRejected
	default:
		return MatchOutcomePartiallyRejected
	}
}

// OrderStatus is the user-facing result of the order path.
type OrderStatus string

const (
	OrderStatusFulfilled         OrderStatus = OrderStatus(MatchOutcomeFulfilled)
	OrderStatusRejected          OrderStatus = OrderStatus(MatchOutcomeRejected)
	OrderStatusPartiallyRejected OrderStatus = OrderStatus(MatchOutcomePartiallyRejected)
	OrderStatusMenuUnavailable   OrderStatus = "MENU_UNAVAILABLE"
	OrderStatusMenuUnreadable    OrderStatus = "MENU_UNREADABLE"
	OrderStatusNoItemsIdentified OrderStatus = "NO_ITEMS_IDENTIFIED"
)

// IsConfirmed reports whether the order was placed.
func (s OrderStatus) IsConfirmed() bool {
	return s == OrderStatusFulfilled
}

// OrderOutcome is the structured reply to an order request.
type OrderOutcome struct {
	Status    OrderStatus
	Requested []string
	Available []string
	Missing   []string
	MenuItems []string
	Message   string
}

// QueryIntent labels which path answered a query.
type QueryIntent string

const (
	QueryIntentGeneral QueryIntent = "GENERAL"
	QueryIntentOrder   QueryIntent = "ORDER"
)

// QueryResult is the answer to a free-text query. Order is set only on
// the order path.
type QueryResult struct {
	Scope  Scope
	Query  string
	Intent QueryIntent
	Answer string
	Order  *OrderOutcome
}
