package badger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/docmodel/storage"
)

// Key prefixes for different data types
const (
	documentPrefix  = "doc"
	indexPrefix     = "idx"
	indexMetaPrefix = "idxmeta"
)

// digestSize is the length in bytes of an index value digest.
const digestSize = 16

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + ":" + id)
}

// makeDocumentScanPrefix returns the prefix shared by all document keys.
func makeDocumentScanPrefix() []byte {
	return []byte(documentPrefix + ":")
}

// makeIndexFieldPrefix generates the prefix of every entry of one index.
// The field name is length-prefixed so "a" never matches entries of "a:b".
// Format: idx:len:field:
func makeIndexFieldPrefix(field string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s:", indexPrefix, len(field), field))
}

// makeIndexValuePrefix generates the prefix of all entries for one value.
// Format: idx:len:field:digest:
func makeIndexValuePrefix(field, digest string) []byte {
	prefix := makeIndexFieldPrefix(field)
	buf := make([]byte, 0, len(prefix)+len(digest)+1)
	buf = append(buf, prefix...)
	buf = append(buf, digest...)
	return append(buf, ':')
}

// makeIndexKey generates the key of one index entry.
// Format: idx:len:field:digest:id
func makeIndexKey(field, digest, id string) []byte {
	return append(makeIndexValuePrefix(field, digest), id...)
}

// makeIndexMetaKey generates the key holding an index definition.
func makeIndexMetaKey(field string) []byte {
	return []byte(indexMetaPrefix + ":" + field)
}

// makeIndexMetaScanPrefix returns the prefix shared by all index definitions.
func makeIndexMetaScanPrefix() []byte {
	return []byte(indexMetaPrefix + ":")
}

// valueDigest hashes the canonical JSON form of an indexed value.
// Numbers of any Go kind encode identically, and map keys are sorted,
// so equal values always share a digest.
func valueDigest(v any) (string, error) {
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: index value: %w", storage.ErrSerializationFailed, err)
	}
	h, err := blake2b.New(digestSize, nil)
	if err != nil {
		return "", err
	}
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
