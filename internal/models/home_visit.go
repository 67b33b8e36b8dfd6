package models

import "time"

// HomeVisitStatus is the lifecycle state of a home visit request.
type HomeVisitStatus string

const (
	HomeVisitPending   HomeVisitStatus = "Pending"
	HomeVisitAccepted  HomeVisitStatus = "Accepted"
	HomeVisitRejected  HomeVisitStatus = "Rejected"
	HomeVisitCancelled HomeVisitStatus = "Cancelled"
	HomeVisitCompleted HomeVisitStatus = "Completed"
)

// HomeVisit is a patient's request for a doctor to visit their address.
type HomeVisit struct {
	BaseModel
	PatientID     string          `gorm:"size:36;not null;index" json:"patientId"`
	DoctorID      string          `gorm:"size:36;not null;index" json:"doctorId"`
	Address       string          `gorm:"size:255;not null" json:"address"`
	Reason        string          `gorm:"size:255;not null" json:"reason"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Latitude      *float64        `json:"latitude,omitempty"`
	Longitude     *float64        `json:"longitude,omitempty"`
	PreferredTime *time.Time      `json:"preferredTime,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	ETAMinutes    *int            `json:"etaMinutes,omitempty"`
	Status        HomeVisitStatus `gorm:"size:20;default:'Pending';index" json:"status"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}
