package models

// Review is a patient's rating of a doctor for one appointment.
type Review struct {
	BaseModel
	UserID        string `gorm:"size:36;not null;uniqueIndex:idx_review_appointment_user,priority:2" json:"userId"`
	PatientID     string `gorm:"size:36;index" json:"patientId"`
	DoctorID      string `gorm:"size:36;not null;index" json:"doctorId"`
	AppointmentID string `gorm:"size:36;not null;uniqueIndex:idx_review_appointment_user,priority:1" json:"appointmentId"`
	Rating        int    `gorm:"not null" json:"rating"`
	Comment       string `gorm:"type:text" json:"comment"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
