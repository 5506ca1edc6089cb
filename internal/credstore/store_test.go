package credstore

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func bearerSession() domain.Session {
	return domain.Session{
		ID: "6f1c0a52-7c1e-4b7e-9a55-0d2f3c4b5a69",
		Identity: domain.Identity{
			UserID:         "u-1",
			DisplayName:    "Asha",
			Mode:           domain.AuthModeBearer,
			Token:          "tok-1",
			TokenExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Language:  "hi",
		StartedAt: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func replaySession() domain.Session {
	return domain.Session{
		ID: "k3j9x0a1b2c",
		Identity: domain.Identity{
			UserID:      "7",
			DisplayName: "Ravi",
			Mode:        domain.AuthModeCredentialReplay,
			Replay: &domain.Credentials{
				Name:        "Ravi",
				DateOfBirth: time.Date(1985, 12, 3, 0, 0, 0, 0, time.UTC),
				PIN:         "9876",
			},
		},
		Language:     "en",
		LowEntropyID: true,
	}
}

// runStoreContract exercises behaviour every driver must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("empty load", func(t *testing.T) {
		require.NoError(t, s.Clear(ctx))
		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("bearer round trip", func(t *testing.T) {
		want := bearerSession()
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Identity.UserID, got.Identity.UserID)
		assert.Equal(t, want.Identity.DisplayName, got.Identity.DisplayName)
		assert.Equal(t, want.Identity.Token, got.Identity.Token)
		assert.Equal(t, domain.AuthModeBearer, got.Identity.Mode)
		assert.True(t, want.Identity.TokenExpiresAt.Equal(got.Identity.TokenExpiresAt))
		assert.True(t, want.StartedAt.Equal(got.StartedAt))
		assert.Equal(t, "hi", got.Language)
		assert.False(t, got.LowEntropyID)
		assert.Nil(t, got.Identity.Replay)
	})

	t.Run("save replaces previous fields", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, bearerSession()))
		require.NoError(t, s.Save(ctx, replaySession()))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "7", got.Identity.UserID)
		assert.Empty(t, got.Identity.Token, "token from the earlier session must not survive")
		assert.True(t, got.Identity.TokenExpiresAt.IsZero())
		assert.True(t, got.LowEntropyID)
		require.NotNil(t, got.Identity.Replay)
		assert.Equal(t, "9876", got.Identity.Replay.PIN)
		assert.Equal(t, "1985-12-03", got.Identity.Replay.DOB())
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, bearerSession()))
		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory(silentLog())
	t.Cleanup(func() { s.Close() })
	runStoreContract(t, s)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	s, err := OpenSQLite(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	runStoreContract(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.db")
	ctx := context.Background()

	s, err := OpenSQLite(path, silentLog())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, bearerSession()))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s, err = OpenSQLite(path, silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bearerSession().ID, got.ID)
}

func TestSQLiteFilesArePrivate(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("new file", func(t *testing.T) {
		path := filepath.Join(dir, "new.db")
		s, err := OpenSQLite(path, silentLog())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		require.NoError(t, s.Save(ctx, bearerSession()))

		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			info, err := os.Stat(p)
			if p != path && os.IsNotExist(err) {
				continue
			}
			require.NoError(t, err, p)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), p)
		}
	})

	t.Run("existing file is tightened", func(t *testing.T) {
		path := filepath.Join(dir, "loose.db")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		require.NoError(t, os.Chmod(path, 0o644))

		s, err := OpenSQLite(path, silentLog())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})
}

func TestSQLiteFailedSaveKeepsPreviousSession(t *testing.T) {
	s, err := OpenSQLite(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, bearerSession()))

	// Fail the save after its DELETE and some INSERTs have run.
	_, err = s.sql.Exec(`CREATE TRIGGER reject_pin BEFORE INSERT ON credentials
		WHEN NEW.key = 'replay_pin'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	require.Error(t, s.Save(ctx, replaySession()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bearerSession().ID, got.ID)
	assert.Equal(t, "tok-1", got.Identity.Token)
	assert.Nil(t, got.Identity.Replay)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, s.Save(cancelled, replaySession()))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bearerSession().ID, got.ID)
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	s, err := OpenSQLite(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.migrate())

	var count int
	require.NoError(t, s.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestSQLiteIncompleteRecordCleared(t *testing.T) {
	s, err := OpenSQLite(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.sql.Exec("INSERT INTO credentials (key, value) VALUES ('user_id', 'u-1'), ('access_token', 'tok')")
	require.NoError(t, err)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	require.NoError(t, s.sql.QueryRow("SELECT COUNT(*) FROM credentials").Scan(&count))
	assert.Zero(t, count)
}

func TestMemoryIncompleteRecordCleared(t *testing.T) {
	s := NewMemory(silentLog())
	s.fields = map[string]string{FieldSessionID: "s1", FieldAccessToken: "tok"}

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, s.fields)
}

func TestEncodeOmitsSecretsItDoesNotHave(t *testing.T) {
	f := encode(bearerSession())
	assert.NotContains(t, f, FieldReplayPIN)
	assert.NotContains(t, f, FieldLowEntropy)
	assert.Equal(t, "tok-1", f[FieldAccessToken])

	f = encode(replaySession())
	assert.NotContains(t, f, FieldAccessToken)
	assert.Equal(t, "9876", f[FieldReplayPIN])
	assert.Equal(t, "true", f[FieldLowEntropy])
}

func TestDecode(t *testing.T) {
	base := encode(bearerSession())

	tests := []struct {
		name   string
		mutate func(map[string]string)
		ok     bool
	}{
		{"complete", func(map[string]string) {}, true},
		{"no user id", func(f map[string]string) { delete(f, FieldUserID) }, false},
		{"no session id", func(f map[string]string) { delete(f, FieldSessionID) }, false},
		{"bearer without token", func(f map[string]string) { delete(f, FieldAccessToken) }, false},
		{"replay without pin", func(f map[string]string) {
			f[FieldAuthMode] = string(domain.AuthModeCredentialReplay)
			f[FieldReplayName] = "Asha"
			f[FieldReplayDOB] = "1990-04-01"
		}, false},
		{"missing language defaults", func(f map[string]string) { delete(f, FieldLanguage) }, true},
		{"garbled expiry ignored", func(f map[string]string) { f[FieldTokenExpiresAt] = "soon" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := maps.Clone(base)
			tt.mutate(f)
			sess, ok := decode(f)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.NotEmpty(t, sess.Language)
			}
		})
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	paths := config.Paths{Credentials: filepath.Join(t.TempDir(), "credentials.db")}

	s, err := Open(ctx, config.CredentialsConfig{Store: DriverMemory}, paths, silentLog())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	s.Close()

	s, err = Open(ctx, config.CredentialsConfig{Store: DriverSQLite}, paths, silentLog())
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()
	assert.FileExists(t, paths.Credentials)

	_, err = Open(ctx, config.CredentialsConfig{Store: "etcd"}, paths, silentLog())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MEDCHAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEDCHAT_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := OpenRedis(ctx, config.RedisConfig{Addr: addr, Key: "medchat:test:" + t.Name()}, silentLog())
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Clear(ctx)
		s.Close()
	})

	runStoreContract(t, s)

	t.Run("ttl applied", func(t *testing.T) {
		ttlStore := NewRedis(redis.NewClient(&redis.Options{Addr: addr}), s.key+":ttl", time.Minute, silentLog())
		t.Cleanup(func() {
			ttlStore.Clear(ctx)
			ttlStore.Close()
		})

		require.NoError(t, ttlStore.Save(ctx, bearerSession()))
		ttl, err := ttlStore.client.TTL(ctx, ttlStore.key).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})
}
