package hash

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintDigests(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello")
	require.NoError(t, ioutil.WriteFile(path, []byte("hello"), 0644))

	var out bytes.Buffer
	stdout = &out

	assert.NoError(t, printDigests("sha256", []string{path}))
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824  "+path+"\n",
		out.String())

	assert.Error(t, printDigests("sha256", []string{filepath.Join(dir, "missing")}))
	assert.Error(t, printDigests("md4", []string{path}))
}
