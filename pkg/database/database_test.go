package database

import (
	"testing"

	"testhub_backend/internal/config"
	"testhub_backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBSQLiteAndMigrate(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range []interface{}{&model.Test{}, &model.Question{}, &model.Attempt{}, &model.CourseEnrollment{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&model.Attempt{}, "idx_attempt_active_slot"))
	assert.True(t, db.Migrator().HasIndex(&model.Attempt{}, "idx_attempt_number"))
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := dialectorFor(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInitRedisDisabled(t *testing.T) {
	rdb, err := InitRedis(&config.RedisConfig{Enabled: false})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}
