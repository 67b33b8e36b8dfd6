package scheduler

import "curequeue-server/internal/models"

// QueueEntry is one row of a doctor's queue as shown to the doctor.
type QueueEntry struct {
	ID          string                   `json:"id"`
	Token       int                      `json:"token"`
	Date        string                   `json:"date"`
	Time        string                   `json:"time"`
	Status      models.AppointmentStatus `json:"status"`
	WaitingTime int                      `json:"waitingTime"`
	Reason      string                   `json:"reason"`
	IsOffline   bool                     `json:"isOffline"`
	PatientID   *string                  `json:"patientId"`
	PatientName string                   `json:"patientName"`
	Phone       string                   `json:"phone"`
}

// Entries maps appointments to queue rows. Walk-ins show the name and phone
// taken at the desk; registered patients show their profile.
func Entries(appts []models.Appointment) []QueueEntry {
	entries := make([]QueueEntry, 0, len(appts))
	for _, a := range appts {
		e := QueueEntry{
			ID:          a.ID,
			Token:       a.Token,
			Date:        a.Date,
			Time:        a.Time,
			Status:      a.Status,
			WaitingTime: a.WaitingTime,
			Reason:      a.Reason,
			IsOffline:   a.IsOffline,
			PatientID:   a.PatientID,
			PatientName: a.PatientName,
			Phone:       a.Phone,
		}
		if !a.IsOffline && a.Patient != nil {
			e.PatientName = a.Patient.FullName()
			e.Phone = a.Patient.PhoneNumber
		}
		if e.PatientName == "" {
			e.PatientName = "Unknown"
		}
		entries = append(entries, e)
	}
	return entries
}
