package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertCallerByPhone(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{})

	first, err := UpsertCallerByPhone(db, "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, CallerRoleStudent, first.Role)

	// Same phone again must land on the same row
	second, err := UpsertCallerByPhone(db, "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&Caller{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertCallerByPhoneEmpty(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{})

	_, err := UpsertCallerByPhone(db, "")
	assert.Error(t, err)
}

func TestUpsertCallerByPhonePreservesRole(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{})

	teacher := &Caller{Phone: "+15550002222", Name: "Ms. Vega", Role: CallerRoleTeacher}
	require.NoError(t, db.Create(teacher).Error)

	// An inbound call from a registered teacher must not demote the row
	got, err := UpsertCallerByPhone(db, "+15550002222")
	require.NoError(t, err)
	assert.Equal(t, CallerRoleTeacher, got.Role)
	assert.Equal(t, "Ms. Vega", got.Name)
}

func TestGetCallerByPhoneUnknown(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{})

	got, err := GetCallerByPhone(db, "+15559999999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListCounselors(t *testing.T) {
	db := setupTestDBWithSilentLogger(t, &Caller{})

	require.NoError(t, db.Create(&Caller{Phone: "+1", Role: CallerRoleStudent}).Error)
	require.NoError(t, db.Create(&Caller{Phone: "+2", Role: CallerRoleCounselor, Status: CounselorAvailable}).Error)
	require.NoError(t, db.Create(&Caller{Phone: "+3", Role: CallerRoleCounselor, Status: CounselorOffline}).Error)

	counselors, err := ListCounselors(db)
	require.NoError(t, err)
	require.Len(t, counselors, 2)
	assert.Equal(t, "+2", counselors[0].Phone)
	assert.Equal(t, "+3", counselors[1].Phone)
}
