package enums

import "fmt"

// ReturnStatus tracks the lifecycle of a return request.
type ReturnStatus string

const (
	ReturnStatusInitiated  ReturnStatus = "INITIATED"
	ReturnStatusApproved   ReturnStatus = "APPROVED"
	ReturnStatusRejected   ReturnStatus = "REJECTED"
	ReturnStatusProcessing ReturnStatus = "PROCESSING"
	ReturnStatusCompleted  ReturnStatus = "COMPLETED"
	ReturnStatusCancelled  ReturnStatus = "CANCELLED"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusInitiated,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusProcessing,
	ReturnStatusCompleted,
	ReturnStatusCancelled,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
