package workflow

// Stage is a step of a mutation request. Stages only move forward, and
// Rejected can follow any gate.
type Stage int

const (
	Received Stage = iota
	CSRFValidated
	GroupResolved
	Authorized
	Applied
	FlashSet
	Redirected
	Rejected
)

var stageNames = [...]string{
	Received:      "received",
	CSRFValidated: "csrf_validated",
	GroupResolved: "group_resolved",
	Authorized:    "authorized",
	Applied:       "applied",
	FlashSet:      "flash_set",
	Redirected:    "redirected",
	Rejected:      "rejected",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
