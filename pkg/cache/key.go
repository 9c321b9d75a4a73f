package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// RenderKeyOpts are the render options that change the bytes of a
// rendered diagram.
type RenderKeyOpts struct {
	Format string `json:"format"`
	Layout string `json:"layout"`
}

// Keyer builds cache keys for rendered diagrams.
type Keyer interface {
	RenderKey(docHash string, opts RenderKeyOpts) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RenderKey returns "render:" followed by the digest of the document hash
// and the options.
func (DefaultKeyer) RenderKey(docHash string, opts RenderKeyOpts) string {
	data, _ := json.Marshal(struct {
		Doc  string        `json:"doc"`
		Opts RenderKeyOpts `json:"opts"`
	}{docHash, opts})
	return "render:" + Digest(data)
}

// Digest is the hex SHA-256 of a marshalled world model. It also names
// the files of [FileCache].
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
