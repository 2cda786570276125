package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	files, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups, downs := 0, 0
	for _, f := range files {
		switch {
		case len(f) > 7 && f[len(f)-7:] == ".up.sql":
			ups++
		case len(f) > 9 && f[len(f)-9:] == ".down.sql":
			downs++
		}
	}
	assert.Equal(t, ups, downs)
	assert.Equal(t, 4, ups)
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Apply(conn, config.Config{DBType: "sqlite", DBAutoMigrate: true}, zap.NewNop()))
	for _, table := range []string{"users", "sessions", "user_profiles", "subscriptions", "webhook_events"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestApplySkippedWhenDisabled(t *testing.T) {
	assert.NoError(t, Apply(nil, config.Config{DBType: "postgres"}, zap.NewNop()))
}
