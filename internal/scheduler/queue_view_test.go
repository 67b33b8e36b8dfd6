package scheduler

import (
	"testing"

	"curequeue-server/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEntriesPatientFallbacks(t *testing.T) {
	pid := "pat-1"
	appts := []models.Appointment{
		{Token: 1, PatientID: &pid, Patient: &models.User{FirstName: "Asha", LastName: "Rao", PhoneNumber: "111"}},
		{Token: 2, IsOffline: true, PatientName: "Walk In", Phone: "222"},
		{Token: 3, PatientID: &pid},
	}

	entries := Entries(appts)

	assert.Len(t, entries, 3)
	assert.Equal(t, "Asha Rao", entries[0].PatientName)
	assert.Equal(t, "111", entries[0].Phone)
	assert.Equal(t, "Walk In", entries[1].PatientName)
	assert.Equal(t, "222", entries[1].Phone)
	assert.Equal(t, "Unknown", entries[2].PatientName)
	assert.NotNil(t, Entries(nil))
}
