package web

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	assets := Static()
	for _, name := range []string{"sw.js", "offline.html", "push-client.js", "manifest.webmanifest"} {
		data, err := fs.ReadFile(assets, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	sw, err := fs.ReadFile(assets, "sw.js")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(sw), "__CACHE_VERSION__"))
	assert.Contains(t, string(sw), "You have a new notification")
}
