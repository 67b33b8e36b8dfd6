package handlers

import (
	"net/http"
	"testing"

	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var adminActor = &models.Actor{ID: "adm-1", Role: models.RoleAdmin}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func userRouter(actor *models.Actor, h *UserHandler) *gin.Engine {
	r := newTestEngine(actor)
	users := r.Group("/auth/users", middleware.RoleAuthMiddleware(models.RoleAdmin))
	users.GET("", h.ListUsers)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)
	return r
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password", "first_name", "last_name", "role"})
}

func TestUserManagementIsAdminOnly(t *testing.T) {
	for _, actor := range []*models.Actor{
		{ID: "pat-1", Role: models.RolePatient},
		{ID: "doc-1", Role: models.RoleDoctor},
	} {
		r := userRouter(actor, NewUserHandler(nil, &stubReviews{}))
		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/auth/users"},
			{http.MethodPut, "/auth/users/u-1"},
			{http.MethodDelete, "/auth/users/u-1"},
		} {
			w, _ := perform(t, r, tc.method, tc.path, gin.H{})
			assert.Equal(t, http.StatusForbidden, w.Code, "%s %s as %s", tc.method, tc.path, actor.Role)
		}
	}
}

func TestListUsers(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` ORDER BY created_at DESC").
		WillReturnRows(userRows().
			AddRow("doc-1", "mehta@clinic.test", "$2a$10$secret-hash", "Rahul", "Mehta", "doctor").
			AddRow("pat-1", "asha@clinic.test", "$2a$10$secret-hash", "Asha", "Rao", "patient"))

	r := userRouter(adminActor, NewUserHandler(db, &stubReviews{}))
	w, resp := perform(t, r, http.MethodGet, "/auth/users", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	users, ok := resp.Data["users"].([]interface{})
	require.True(t, ok)
	require.Len(t, users, 2)
	assert.Equal(t, "Rahul Mehta", users[0].(map[string]interface{})["name"])
	assert.NotContains(t, w.Body.String(), "secret-hash")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").WillReturnRows(userRows())

	rs := &stubReviews{}
	r := userRouter(adminActor, NewUserHandler(db, rs))
	w, resp := perform(t, r, http.MethodPut, "/auth/users/u-404", gin.H{"firstName": "Nobody"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", resp.Message)
	assert.Zero(t, rs.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserRejectsTakenEmail(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnRows(userRows().AddRow("pat-1", "asha@clinic.test", "x", "Asha", "Rao", "patient"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE \\(?email = \\? AND id <> \\?").
		WithArgs("mehta@clinic.test", "pat-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := userRouter(adminActor, NewUserHandler(db, &stubReviews{}))
	w, resp := perform(t, r, http.MethodPut, "/auth/users/pat-1", gin.H{"email": "Mehta@Clinic.test"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already in use", resp.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserDuplicateOnSave(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnRows(userRows().AddRow("pat-1", "asha@clinic.test", "x", "Asha", "Rao", "patient"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry 'new@clinic.test' for key 'users.idx_users_email'"})

	r := userRouter(adminActor, NewUserHandler(db, &stubReviews{}))
	w, resp := perform(t, r, http.MethodPut, "/auth/users/pat-1", gin.H{"email": "new@clinic.test"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already in use", resp.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserPromotesToDoctor(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnRows(userRows().AddRow("pat-1", "asha@clinic.test", "x", "Asha", "Rao", "patient"))
	mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 1))

	rs := &stubReviews{}
	r := userRouter(adminActor, NewUserHandler(db, rs))
	w, resp := perform(t, r, http.MethodPut, "/auth/users/pat-1", gin.H{"role": "doctor", "phoneNumber": "98450"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "doctor", resp.Data["role"])
	assert.Equal(t, "98450", resp.Data["phoneNumber"])
	assert.Equal(t, 1, rs.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserRejectsUnknownRole(t *testing.T) {
	r := userRouter(adminActor, NewUserHandler(nil, &stubReviews{}))
	w, _ := perform(t, r, http.MethodPut, "/auth/users/pat-1", gin.H{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteUser(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnRows(userRows().AddRow("doc-1", "mehta@clinic.test", "x", "Rahul", "Mehta", "doctor"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `refresh_tokens` WHERE user_id = \\?").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `users` WHERE `users`.`id` = \\?").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rs := &stubReviews{}
	r := userRouter(adminActor, NewUserHandler(db, rs))
	w, resp := perform(t, r, http.MethodDelete, "/auth/users/doc-1", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "User deleted successfully", resp.Message)
	assert.Equal(t, 1, rs.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").WillReturnRows(userRows())

	r := userRouter(adminActor, NewUserHandler(db, &stubReviews{}))
	w, resp := perform(t, r, http.MethodDelete, "/auth/users/u-404", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", resp.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithHistory(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnRows(userRows().AddRow("pat-1", "asha@clinic.test", "x", "Asha", "Rao", "patient"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `refresh_tokens`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `users`").
		WillReturnError(&gomysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
	mock.ExpectRollback()

	rs := &stubReviews{}
	r := userRouter(adminActor, NewUserHandler(db, rs))
	w, resp := perform(t, r, http.MethodDelete, "/auth/users/pat-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User has appointment history and cannot be deleted", resp.Message)
	assert.Zero(t, rs.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOwnAccountRefused(t *testing.T) {
	r := userRouter(adminActor, NewUserHandler(nil, &stubReviews{}))
	w, resp := perform(t, r, http.MethodDelete, "/auth/users/"+adminActor.ID, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You cannot delete your own account", resp.Message)
}
