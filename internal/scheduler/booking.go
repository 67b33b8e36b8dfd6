package scheduler

import "curequeue-server/internal/models"

// Booker identifies who a queue place is booked for. It is either an
// OnlinePatient or an OfflinePatient.
type Booker interface {
	apply(a *models.Appointment)
}

// OnlinePatient is a registered patient booking for themselves.
type OnlinePatient struct {
	ID string
}

func (p OnlinePatient) apply(a *models.Appointment) {
	id := p.ID
	a.PatientID = &id
	a.IsOffline = false
}

// OfflinePatient is a walk-in registered at the desk by name and phone.
type OfflinePatient struct {
	Name  string
	Phone string
}

func (p OfflinePatient) apply(a *models.Appointment) {
	a.PatientID = nil
	a.IsOffline = true
	a.PatientName = p.Name
	a.Phone = p.Phone
}
