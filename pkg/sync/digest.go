package sync

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/sidkik/foldersync/pkg/errors"
)

// DefaultDigest is the digest algorithm used when none is configured.
const DefaultDigest = "sha256"

var digests = map[string]func() hash.Hash{
	"sha256":   sha256.New,
	"sha512":   sha512.New,
	"sha3-256": sha3.New256,
	"blake2b-256": func() hash.Hash {
		// New256 only fails for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	},
}

// Digests returns the names of the supported digest algorithms, sorted.
func Digests() []string {
	var names []string
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Digest computes content digests with a single hash algorithm.
type Digest struct {
	name    string
	newHash func() hash.Hash
}

// NewDigest returns the Digest for the named algorithm.
func NewDigest(name string) (Digest, error) {
	if name == "" {
		name = DefaultDigest
	}

	newHash, ok := digests[name]
	if !ok {
		return Digest{}, errors.NewFriendlyError(
			"Unknown hash algorithm %q. Supported algorithms: %v.", name, Digests())
	}
	return Digest{name: name, newHash: newHash}, nil
}

// Name returns the algorithm name.
func (d Digest) Name() string {
	return d.name
}

// HashFile returns the hex-encoded digest of the file at the given path. The
// file is streamed through the hash rather than read into memory.
func (d Digest) HashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := d.newHash()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
