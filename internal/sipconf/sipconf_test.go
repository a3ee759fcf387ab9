package sipconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleConf = `[general]
context=default
allowguest=no

register => olduser:oldpass@old.example.com/olduser

[voipms-trunk]
type=friend
host=old.example.com
fromdomain=old.example.com
username=olduser
fromuser=olduser
secret=oldpass
context=soc-incoming

[internal]
host=dynamic
username=phone1
`

func TestPatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sip.conf")
	assert.NoError(t, os.WriteFile(path, []byte(sampleConf), 0o640))

	assert.NoError(t, Patch(path, "newuser", "newpass", "sip.example.net"))

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	got := string(data)

	assert.Contains(t, got, "register => newuser:newpass@sip.example.net/newuser")
	assert.Contains(t, got, "host=sip.example.net")
	assert.Contains(t, got, "fromdomain=sip.example.net")
	assert.Contains(t, got, "username=newuser")
	assert.Contains(t, got, "fromuser=newuser")
	assert.Contains(t, got, "secret=newpass")

	// Lines outside the trunk section stay put.
	assert.Contains(t, got, "context=default")
	assert.Contains(t, got, "host=dynamic")
	assert.Contains(t, got, "username=phone1")

	// Old credentials are gone.
	assert.NotContains(t, got, "oldpass")

	// Line count unchanged.
	assert.Equal(t, strings.Count(sampleConf, "\n"), strings.Count(got, "\n"))
}

func TestPatch_MissingFile(t *testing.T) {
	err := Patch(filepath.Join(t.TempDir(), "nope.conf"), "u", "p", "s")
	assert.Error(t, err)
}
