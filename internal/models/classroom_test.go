package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureClassroom(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{}, &Classroom{})

	first, err := EnsureClassroom(db, 1, "3B")
	require.NoError(t, err)
	second, err := EnsureClassroom(db, 1, "3B")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Same name under another owner is a different classroom
	other, err := EnsureClassroom(db, 2, "3B")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	_, err = EnsureClassroom(db, 1, "")
	assert.Error(t, err)
}

func TestEnsureStudentScoping(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{}, &Classroom{}, &Student{})

	room, err := EnsureClassroom(db, 1, "3B")
	require.NoError(t, err)

	scoped, err := EnsureStudent(db, &room.ID, "Alice")
	require.NoError(t, err)
	again, err := EnsureStudent(db, &room.ID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, scoped.ID, again.ID)

	// Same name without a classroom is a different student
	unscoped, err := EnsureStudent(db, nil, "Alice")
	require.NoError(t, err)
	assert.NotEqual(t, scoped.ID, unscoped.ID)

	again, err = EnsureStudent(db, nil, "Alice")
	require.NoError(t, err)
	assert.Equal(t, unscoped.ID, again.ID)
}

func TestListClassroomGrades(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{}, &Classroom{}, &Student{}, &Grade{})

	room, err := EnsureClassroom(db, 1, "3B")
	require.NoError(t, err)
	alice, err := EnsureStudent(db, &room.ID, "Alice")
	require.NoError(t, err)
	bob, err := EnsureStudent(db, nil, "Bob")
	require.NoError(t, err)

	require.NoError(t, CreateGrade(db, alice.ID, "Math", 92))
	require.NoError(t, CreateGrade(db, alice.ID, "Biology", 88))
	require.NoError(t, CreateGrade(db, bob.ID, "History", 75))

	grades, err := ListClassroomGrades(db, room.ID)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	// Newest first, and the unscoped student's grade stays out
	assert.Equal(t, "Biology", grades[0].Subject)
	assert.Equal(t, "Math", grades[1].Subject)
	for _, g := range grades {
		assert.Equal(t, "Alice", g.Student.Name)
	}
}
