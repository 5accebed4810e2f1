package models

// requestTransitions enumerates the legal request state machine. Draft is
// never re-entered once the request has been submitted.
var requestTransitions = map[RequestState][]RequestState{
	REQUEST_DRAFT:            {REQUEST_PENDING_APPROVAL},
	REQUEST_PENDING_APPROVAL: {REQUEST_APPROVED, REQUEST_REJECTED},
	REQUEST_APPROVED:         {REQUEST_DISPATCHED},
	REQUEST_REJECTED:         {},
	REQUEST_DISPATCHED:       {},
}

// itemTransitions enumerates the legal item state machine. The DISPATCHED ->
// APPROVED edge is the retry path; an item in DLQ, ACKED, FAILED or REJECTED
// is terminal.
var itemTransitions = map[ItemState][]ItemState{
	ITEM_PENDING_APPROVAL: {ITEM_APPROVED, ITEM_REJECTED},
	ITEM_APPROVED:         {ITEM_DISPATCHED},
	ITEM_DISPATCHED:       {ITEM_ACKED, ITEM_APPROVED, ITEM_FAILED, ITEM_DLQ},
	ITEM_REJECTED:         {},
	ITEM_ACKED:            {},
	ITEM_FAILED:           {},
	ITEM_DLQ:              {},
}

// CanTransition reports whether a request may move from one state to another.
func (s RequestState) CanTransition(to RequestState) bool {
	for _, next := range requestTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether an item may move from one state to another.
func (s ItemState) CanTransition(to ItemState) bool {
	for _, next := range itemTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// StateForOutcome maps a dispatch outcome log status to the item state it
// implies. Keeping this mapping in one place is what lets the recorder
// guarantee that an item's state always agrees with its latest log row.
func StateForOutcome(status LogStatus) (ItemState, bool) {
	switch status {
	case LOG_DISPATCHED:
		return ITEM_DISPATCHED, true
	case LOG_ACKED:
		return ITEM_ACKED, true
	case LOG_FAILED:
		return ITEM_FAILED, true
	case LOG_RETRIED:
		return ITEM_APPROVED, true
	case LOG_MOVED_TO_DLQ:
		return ITEM_DLQ, true
	default:
		return "", false
	}
}

// ValidCommandType reports whether the given string names a known command type.
func ValidCommandType(t CommandType) bool {
	switch t {
	case CONNECT, DISCONNECT, PING, RELAYSTATUS:
		return true
	}
	return false
}

// ValidLedgerReason reports whether the given string names a known ledger reason.
func ValidLedgerReason(r LedgerReason) bool {
	switch r {
	case LEDGER_CONSUMPTION, LEDGER_RECHARGE, LEDGER_ADJUSTMENT:
		return true
	}
	return false
}
