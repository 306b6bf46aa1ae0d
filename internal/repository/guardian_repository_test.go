package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardianRepositoryListNotifiable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	mock.ExpectQuery("(?s)FROM student_profiles sp.*pp.telegram_enabled = TRUE").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"parent_id", "parent_name", "telegram_chat_id", "student_user_id", "student_full_name"}).
			AddRow("parent-1", "Anna Petrova", "1001", "student-1", "Ivan Petrov"))

	contacts, err := repo.ListNotifiable(context.Background(), []string{"student-1"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "1001", contacts[0].ChatID)
	assert.Equal(t, "Ivan Petrov", contacts[0].StudentFullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianRepositoryListNotifiableNoStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	contacts, err := repo.ListNotifiable(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, contacts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
