package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDrivers = []string{"postgres", "mysql"}

func TestTestDSN(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("TEST_POSTGRES_DSN", "")
		t.Setenv("TEST_MYSQL_DSN", "")

		assert.Equal(t, dialects["postgres"].defaultDSN, TestDSN("postgres"))
		assert.Equal(t, dialects["mysql"].defaultDSN, TestDSN("mysql"))
	})

	t.Run("FromEnvironment", func(t *testing.T) {
		//nolint:gosec // test credentials
		t.Setenv("TEST_POSTGRES_DSN", "postgres://ci:ci@db:5432/credstore")
		t.Setenv("TEST_MYSQL_DSN", "ci:ci@tcp(db:3306)/credstore")

		assert.Equal(t, "postgres://ci:ci@db:5432/credstore", TestDSN("postgres"))
		assert.Equal(t, "ci:ci@tcp(db:3306)/credstore", TestDSN("mysql"))
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		assert.Empty(t, TestDSN("sqlite"))
	})
}

func TestGetMigrationsPath(t *testing.T) {
	for _, dir := range []string{"postgresql", "mysql"} {
		t.Run(dir, func(t *testing.T) {
			path, err := getMigrationsPath(dir)
			require.NoError(t, err)
			assert.Equal(t, dir, filepath.Base(path))

			_, err = os.Stat(filepath.Join(path, "000001_create_encryption_tables.up.sql"))
			assert.NoError(t, err)
		})
	}

	t.Run("Missing", func(t *testing.T) {
		path, err := getMigrationsPath("nonexistent")
		assert.Error(t, err)
		assert.Empty(t, path)
	})
}

func TestGetMigrationsPath_FromSubdirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	subDir := filepath.Join(wd, "testdata", "nested")
	//nolint:gosec // test directory
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	t.Cleanup(func() { _ = os.RemoveAll(filepath.Join(wd, "testdata")) })

	t.Chdir(subDir)

	path, err := getMigrationsPath("postgresql")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", filepath.Base(path))
}

func TestRebind(t *testing.T) {
	query := "INSERT INTO credentials (id, name, created_at) VALUES ($1, $2, $3)"

	assert.Equal(t, query, rebind("postgres", query))
	assert.Equal(t, "INSERT INTO credentials (id, name, created_at) VALUES (?, ?, ?)", rebind("mysql", query))
	assert.Equal(t, "SELECT 1 WHERE a = ? AND b = ?", rebind("mysql", "SELECT 1 WHERE a = $1 AND b = $12"))
}

func TestUUIDValue(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	assert.Equal(t, id, uuidValue(t, "postgres", id))

	raw, ok := uuidValue(t, "mysql", id).([]byte)
	require.True(t, ok)
	assert.Equal(t, id[:], raw)
}

func TestCleanupStatements(t *testing.T) {
	pg := dialects["postgres"].truncate
	require.Len(t, pg, 1)
	for _, table := range tables {
		assert.Contains(t, pg[0], table)
	}

	my := dialects["mysql"].truncate
	require.Len(t, my, len(tables)+2)
	assert.Equal(t, "SET FOREIGN_KEY_CHECKS = 0", my[0])
	assert.Equal(t, "TRUNCATE TABLE audit_records", my[1])
	assert.Equal(t, "SET FOREIGN_KEY_CHECKS = 1", my[len(my)-1])
}

func TestFixtures(t *testing.T) {
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			SkipIfNoDB(t, driver)
			db := SetupDB(t, driver)

			keyID := uuid.New()
			valueID := CreateTestEncryptedValue(t, db, driver, keyID)
			require.NotEqual(t, uuid.Nil, valueID)

			var count int
			require.NoError(t, db.QueryRow(
				rebind(driver, "SELECT COUNT(*) FROM encrypted_values WHERE encryption_key_id = $1"),
				uuidValue(t, driver, keyID),
			).Scan(&count))
			assert.Equal(t, 1, count)

			credentialID := CreateTestCredential(t, db, driver, "/fixture/credential", keyID)

			var name, credentialType string
			require.NoError(t, db.QueryRow(rebind(driver,
				`SELECT c.name, v.type FROM credentials c
				JOIN credential_versions v ON v.credential_id = c.id WHERE c.id = $1`),
				uuidValue(t, driver, credentialID),
			).Scan(&name, &credentialType))
			assert.Equal(t, "/fixture/credential", name)
			assert.Equal(t, "value", credentialType)
			assert.Equal(t, 2, CountRows(t, db, "encrypted_values"))

			CleanupDB(t, db, driver)

			for _, table := range tables {
				assert.Equal(t, 0, CountRows(t, db, table), "cleanup should empty %s", table)
			}
		})
	}
}
