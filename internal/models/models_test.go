package models

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func TestAppointmentStatusTransitions(t *testing.T) {
	cases := []struct {
		from  AppointmentStatus
		to    AppointmentStatus
		valid bool
	}{
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPending, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusConfirmed, false},
	}
	for _, tt := range cases {
		if got := tt.from.CanMoveTo(tt.to); got != tt.valid {
			t.Fatalf("%q.CanMoveTo(%q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestAppointmentStatusIsActive(t *testing.T) {
	assert.True(t, StatusConfirmed.IsActive())
	assert.True(t, StatusPending.IsActive())
	assert.False(t, StatusCompleted.IsActive())
	assert.False(t, StatusCancelled.IsActive())
}

func TestUserPasswordAndName(t *testing.T) {
	u := User{FirstName: "Asha", LastName: "Rao"}
	require.NoError(t, u.SetPassword("s3cret-pass"))

	assert.NotEqual(t, "s3cret-pass", u.Password)
	assert.True(t, u.CheckPassword("s3cret-pass"))
	assert.False(t, u.CheckPassword("wrong"))
	assert.Equal(t, "Asha Rao", u.FullName())
	assert.Equal(t, "Asha", (&User{FirstName: "Asha"}).FullName())
}

func TestBeforeCreateKeepsExistingID(t *testing.T) {
	b := BaseModel{ID: "fixed"}
	require.NoError(t, b.BeforeCreate(nil))
	assert.Equal(t, "fixed", b.ID)

	var fresh BaseModel
	require.NoError(t, fresh.BeforeCreate(nil))
	assert.Len(t, fresh.ID, 36)
}

func TestAppointmentHasPatient(t *testing.T) {
	id := "p-1"
	empty := ""
	assert.True(t, (&Appointment{PatientID: &id}).HasPatient())
	assert.False(t, (&Appointment{PatientID: &empty}).HasPatient())
	assert.False(t, (&Appointment{}).HasPatient())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("timeout")))

	assert.True(t, IsDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, IsDuplicate(gorm.ErrDuplicatedKey))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicate(nil))

	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}))
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("delete: %w", gorm.ErrForeignKeyViolated)))
	assert.False(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1062}))
}

func TestAppointmentTokenIsUniquePerQueueDay(t *testing.T) {
	sch, err := schema.Parse(&Appointment{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	idx := sch.LookIndex("idx_appointment_token")
	require.NotNil(t, idx)
	assert.Equal(t, "UNIQUE", idx.Class)

	cols := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		cols = append(cols, f.DBName)
	}
	assert.Equal(t, []string{"doctor_id", "date", "token"}, cols)

	queue := sch.LookIndex("idx_appointment_queue")
	require.NotNil(t, queue)
	assert.Empty(t, queue.Class)
}
