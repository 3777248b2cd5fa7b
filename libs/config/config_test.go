package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort(t *testing.T) {
	t.Setenv("APPT_TEST_PORT", "70000")
	_, err := Port("APPT_TEST_PORT", "8080")
	assert.Error(t, err)

	t.Setenv("APPT_TEST_PORT", "")
	p, err := Port("APPT_TEST_PORT", "8080")
	require.NoError(t, err)
	assert.Equal(t, "8080", p)
}

func TestDurationAndBool(t *testing.T) {
	t.Setenv("APPT_TEST_TTL", "90m")
	d, err := Duration("APPT_TEST_TTL", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	t.Setenv("APPT_TEST_TTL", "-1s")
	_, err = Duration("APPT_TEST_TTL", time.Hour)
	assert.Error(t, err)

	t.Setenv("APPT_TEST_FLAG", "yes")
	_, err = Bool("APPT_TEST_FLAG", false)
	assert.Error(t, err)

	t.Setenv("APPT_TEST_FLAG", "true")
	b, err := Bool("APPT_TEST_FLAG", false)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestList(t *testing.T) {
	t.Setenv("APPT_TEST_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, List("APPT_TEST_BROKERS"))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("APPT_TEST_A=from-file\nAPPT_TEST_B=from-file\n"), 0o600))

	t.Setenv("APPT_TEST_A", "from-env")
	t.Setenv("APPT_TEST_B", "")
	require.NoError(t, os.Unsetenv("APPT_TEST_B"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-env", os.Getenv("APPT_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("APPT_TEST_B"))
	require.NoError(t, os.Unsetenv("APPT_TEST_B"))
}
