package domain

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
	LoanStatusReturned LoanStatus = "RETURNED"
)

// loanTransitions lists the statuses reachable from each status.
// REJECTED and RETURNED are terminal.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusPending:  {LoanStatusApproved, LoanStatusRejected},
	LoanStatusApproved: {LoanStatusReturned},
}

func (s LoanStatus) String() string { return string(s) }

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected, LoanStatusReturned:
		return true
	}
	return false
}

// IsActive reports whether a loan in this status blocks other loans of the same item.
func (s LoanStatus) IsActive() bool {
	return s == LoanStatusPending || s == LoanStatusApproved
}

// IsTerminal reports whether no transition leaves this status.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusRejected || s == LoanStatusReturned
}

// CanTransitionTo reports whether target is reachable from s in one step.
func (s LoanStatus) CanTransitionTo(target LoanStatus) bool {
	if !target.IsValid() {
		return false
	}
	for _, next := range loanTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsDecision reports whether s is an admin decision on a pending loan.
func (s LoanStatus) IsDecision() bool {
	return s == LoanStatusApproved || s == LoanStatusRejected
}

// UserRole represents the authorization level of a user.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin:
		return true
	}
	return false
}

func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin
}

// NotificationKind tags which lifecycle event produced a notification.
type NotificationKind string

const (
	NotificationLoanRequested NotificationKind = "LOAN_REQUESTED"
	NotificationLoanApproved  NotificationKind = "LOAN_APPROVED"
	NotificationLoanRejected  NotificationKind = "LOAN_REJECTED"
	NotificationLoanReturned  NotificationKind = "LOAN_RETURNED"
	NotificationItemAvailable NotificationKind = "ITEM_AVAILABLE"
	NotificationLoanDueSoon   NotificationKind = "LOAN_DUE_SOON"
)

func (k NotificationKind) String() string { return string(k) }

func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationLoanRequested, NotificationLoanApproved, NotificationLoanRejected,
		NotificationLoanReturned, NotificationItemAvailable, NotificationLoanDueSoon:
		return true
	}
	return false
}

// DrainPolicy decides what happens to waitlist entries once they are drained.
type DrainPolicy string

const (
	// DrainRetain keeps entries so users are notified again on later returns.
	DrainRetain DrainPolicy = "retain"
	// DrainRetire removes entries as part of the drain.
	DrainRetire DrainPolicy = "retire"
)

func (p DrainPolicy) String() string { return string(p) }

func (p DrainPolicy) IsValid() bool {
	return p == DrainRetain || p == DrainRetire
}
