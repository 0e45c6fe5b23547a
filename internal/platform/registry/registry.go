// Package registry exports the flattened filesystem of an OCI image, so a
// container registry can serve as a bundle source.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// Scheme prefixes OCI references in bundle URLs.
const Scheme = "oci://"

// ErrNotFound is returned when the repository or tag does not exist.
var ErrNotFound = errors.New("image not found")

// Client pulls images.
type Client struct {
	Keychain authn.Keychain
	Options  []remote.Option
}

// NewClient creates a client that authenticates with the docker config of
// the invoking user.
func NewClient() *Client {
	return &Client{Keychain: authn.DefaultKeychain}
}

// ParseReference parses an oci:// bundle URL.
func ParseReference(raw string) (name.Reference, error) {
	ref, err := name.ParseReference(strings.TrimPrefix(raw, Scheme))
	if err != nil {
		return nil, fmt.Errorf("invalid image reference %q: %w", raw, err)
	}
	return ref, nil
}

// Export writes the flattened filesystem of the image for linux/arch to w as
// a tar stream and returns the number of bytes written.
func (c *Client) Export(ctx context.Context, raw, arch string, w io.Writer) (int64, error) {
	ref, err := ParseReference(raw)
	if err != nil {
		return 0, err
	}

	opts := append([]remote.Option{
		remote.WithContext(ctx),
		remote.WithPlatform(v1.Platform{OS: "linux", Architecture: arch}),
	}, c.Options...)
	if c.Keychain != nil {
		opts = append(opts, remote.WithAuthFromKeychain(c.Keychain))
	}

	img, err := remote.Image(ref, opts...)
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return 0, fmt.Errorf("failed to pull %s: %w", ref, err)
	}

	rc := mutate.Extract(img)
	defer func() { _ = rc.Close() }()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("failed to export filesystem of %s: %w", ref, err)
	}
	return n, nil
}

func isNotFound(err error) bool {
	var terr *transport.Error
	return errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound
}
