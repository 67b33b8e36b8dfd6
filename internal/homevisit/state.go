package homevisit

import "curequeue-server/internal/models"

// transitions lists, per target status, the statuses it may be reached from.
// Completed, Rejected and Cancelled are terminal.
var transitions = map[models.HomeVisitStatus][]models.HomeVisitStatus{
	models.HomeVisitAccepted:  {models.HomeVisitPending},
	models.HomeVisitRejected:  {models.HomeVisitPending},
	models.HomeVisitCancelled: {models.HomeVisitPending, models.HomeVisitAccepted},
	models.HomeVisitCompleted: {models.HomeVisitAccepted},
}

// CanTransition reports whether a visit in from may move to to.
func CanTransition(from, to models.HomeVisitStatus) bool {
	for _, allowed := range transitions[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

// sources returns the statuses from which to is reachable.
func sources(to models.HomeVisitStatus) []models.HomeVisitStatus {
	return transitions[to]
}
