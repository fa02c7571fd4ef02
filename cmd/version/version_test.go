package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/foldersync/pkg/version"
)

func TestPrintVersion(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out

	printVersion()
	assert.Contains(t, out.String(), "version: development build\n")
	assert.Contains(t, out.String(), "hashes:  [blake2b-256 sha256 sha3-256 sha512]\n")

	out.Reset()
	version.Version = "v1.2.0"
	defer func() { version.Version = version.EmptyValue }()
	printVersion()
	assert.Contains(t, out.String(), "version: v1.2.0\n")
}
