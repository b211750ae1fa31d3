package models

// RequestStatus tracks the decision state of an access request.
//
// StatusExpired is declared but never assigned: requests do not age out on
// their own in this deployment. The variant is reserved so stored data stays
// forward-compatible if request TTLs are introduced.
type RequestStatus string

const (
	StatusPending RequestStatus = "pending"
	StatusGranted RequestStatus = "granted"
	StatusDenied  RequestStatus = "denied"
	StatusExpired RequestStatus = "expired"
)

// IsValid checks if the status is one of the supported enum values.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusGranted, StatusDenied, StatusExpired:
		return true
	}
	return false
}
