package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ActiveStatuses are the statuses that count toward a doctor's queue load.
var ActiveStatuses = []AppointmentStatus{StatusConfirmed, StatusPending}

// appointmentTransitions lists, per target status, the statuses it may be reached from.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusCompleted: {StatusConfirmed, StatusPending},
	StatusCancelled: {StatusConfirmed, StatusPending},
}

// IsActive reports whether the appointment still occupies a place in the queue.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusConfirmed || s == StatusPending
}

// CanMoveTo reports whether s may transition to next.
func (s AppointmentStatus) CanMoveTo(next AppointmentStatus) bool {
	for _, from := range appointmentTransitions[next] {
		if from == s {
			return true
		}
	}
	return false
}

// Appointment is a place in a doctor's daily queue. Date and Time are civil
// values in the clinic timezone.
type Appointment struct {
	BaseModel
	PatientID   *string           `gorm:"size:36;index" json:"patientId"`
	DoctorID    string            `gorm:"size:36;not null;index:idx_appointment_queue,priority:1;uniqueIndex:idx_appointment_token,priority:1" json:"doctorId"`
	Date        string            `gorm:"size:10;not null;index:idx_appointment_queue,priority:2;uniqueIndex:idx_appointment_token,priority:2" json:"date"`
	Time        string            `gorm:"size:5;not null" json:"time"`
	Token       int               `gorm:"not null;uniqueIndex:idx_appointment_token,priority:3" json:"token"`
	WaitingTime int               `gorm:"not null;default:0" json:"waitingTime"`
	Status      AppointmentStatus `gorm:"size:20;default:'confirmed';index" json:"status"`
	Reason      string            `gorm:"size:255" json:"reason"`
	IsOffline   bool              `gorm:"default:false" json:"isOffline"`
	PatientName string            `gorm:"size:150" json:"patientName,omitempty"`
	Phone       string            `gorm:"size:32" json:"phone,omitempty"`
	CancelledBy Role              `gorm:"size:20" json:"cancelledBy,omitempty"`

	// Relations
	Patient *User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"-"`
}

// HasPatient reports whether the appointment belongs to a registered patient.
func (a *Appointment) HasPatient() bool {
	return a.PatientID != nil && *a.PatientID != ""
}

// QueueSequence hands out tokens for one doctor's day. The row is locked by
// the booking transaction, which serializes bookings for the same queue.
type QueueSequence struct {
	DoctorID  string `gorm:"primaryKey;size:36"`
	Date      string `gorm:"primaryKey;size:10"`
	LastToken int    `gorm:"not null;default:0"`
}
