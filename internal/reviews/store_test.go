package reviews

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormStoreAggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT doctor_id, COUNT\\(\\*\\) AS total, SUM\\(rating\\) AS rating_sum FROM `reviews` WHERE doctor_id <> '' GROUP BY `doctor_id`").
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id", "total", "rating_sum"}).
			AddRow("doc-1", 3, 13).
			AddRow("doc-2", 1, 2))

	aggs, err := NewGormStore(gdb).Aggregates(context.Background())
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, Aggregate{DoctorID: "doc-1", Total: 3, RatingSum: 13}, aggs[0])
	assert.InDelta(t, 4.3, *AverageRating(aggs[0].RatingSum, aggs[0].Total), 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
