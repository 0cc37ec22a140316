package model

// This file holds the vote-side value types: the rows the store hands back
// and the shapes the poll engine and reports return to the transport.

// VoteRow is one row of the left-outer-join listing of users and their votes.
// Every known user appears at least once; Date is nil for users with no votes
// (the SQL NULL from the outer join), and non-nil once per vote otherwise.
type VoteRow struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Date     *Date  `json:"date,omitempty"`
}

// DateCount is the vote tally for a single date. Only dates somebody actually
// picked are ever counted — the candidate-date universe is not merged in.
type DateCount struct {
	Date  Date `json:"date"`
	Count int  `json:"count"`
}

// FinalizeStatus is the outcome kind of a finalize call.
type FinalizeStatus string

const (
	// FinalizeConfirmed — the selection was non-empty and is confirmed.
	FinalizeConfirmed FinalizeStatus = "confirmed"
	// FinalizeEmpty — the user had nothing selected. A distinct successful
	// outcome with its own user-facing message, NOT an error.
	FinalizeEmpty FinalizeStatus = "empty"
)

// FinalizeResult is returned by the poll engine's Finalize operation.
// Dates is the sorted selection when Status is FinalizeConfirmed, nil otherwise.
type FinalizeResult struct {
	Status FinalizeStatus `json:"status"`
	Dates  []Date         `json:"dates,omitempty"`
}

// DateOption is one candidate date as rendered to a voter, with its current
// selection mark (the checkmark the client draws next to the date).
type DateOption struct {
	Date     Date `json:"date"`
	Selected bool `json:"selected"`
}

// PageView is one page of the candidate-date list.
//
// The poll keeps no per-user "current page" state — the page index is a
// parameter threaded through every interaction, and the transport echoes it
// back on the next request. Page is the index actually rendered, which may
// differ from the one requested when the request was out of range (clamped).
type PageView struct {
	Dates   []DateOption `json:"dates"`
	Page    int          `json:"page"`
	HasPrev bool         `json:"hasPrev"`
	HasNext bool         `json:"hasNext"`
}

// UserReport is one user's line in the coordinator's per-user report.
// Voted distinguishes the "has not voted" marker from an empty Dates slice.
type UserReport struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Voted    bool   `json:"voted"`
	Dates    []Date `json:"dates,omitempty"`
}
