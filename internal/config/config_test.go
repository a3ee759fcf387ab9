package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_EnvVars(t *testing.T) {
	// Set standard environment variables
	os.Setenv("PORT", "9999")
	os.Setenv("ONCALL_DATA_DIR", "/tmp/oncall-test-data")
	os.Setenv("SIP_CONF_PATH", "/tmp/sip.conf")

	// Clean up after test
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ONCALL_DATA_DIR")
		os.Unsetenv("SIP_CONF_PATH")
	}()

	// Load config (no file)
	err := LoadConfig("")
	assert.NoError(t, err)

	// Verify standard env vars are bound
	assert.Equal(t, "9999", App.Port)
	assert.Equal(t, "/tmp/oncall-test-data", App.DataDir)
	assert.Equal(t, "/tmp/sip.conf", App.SIPConfPath)
}

func TestLoadConfig_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("ONCALL_DATA_DIR")
	os.Unsetenv("ONCALL_TIMEZONE")

	err := LoadConfig("")
	assert.NoError(t, err)

	assert.Equal(t, "8080", App.Port)
	assert.Equal(t, "./data", App.DataDir)
	assert.Equal(t, "UTC", App.Timezone)
	assert.Equal(t, "http://localhost:8080", App.APIBaseURL)
}
