package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/hostforge/hostforge/internal/platform/download"
	"github.com/hostforge/hostforge/internal/platform/registry"
	"github.com/hostforge/hostforge/internal/platform/s3"
)

// ErrUnsupportedSource is returned for URLs with an unknown scheme or
// archive format.
var ErrUnsupportedSource = errors.New("unsupported artifact source")

// Format is the archive layout of a bundle.
type Format int

// Supported archive formats.
const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatTar
	FormatZip
)

func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return "tar.gz"
	case FormatTar:
		return "tar"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

// FormatOf infers the archive format from a bundle URL. OCI images are
// exported as plain tar streams.
func FormatOf(ref string) Format {
	if strings.HasPrefix(ref, registry.Scheme) {
		return FormatTar
	}
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.ToLower(path.Base(p))
	switch {
	case strings.HasSuffix(p, ".tar.gz"), strings.HasSuffix(p, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(p, ".tar"):
		return FormatTar
	case strings.HasSuffix(p, ".zip"):
		return FormatZip
	default:
		return FormatUnknown
	}
}

// ObjectStore downloads objects from S3-compatible storage.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key string, w io.Writer) (int64, error)
}

// ImageExporter exports the filesystem of an OCI image as a tar stream.
type ImageExporter interface {
	Export(ctx context.Context, ref, arch string, w io.Writer) (int64, error)
}

// Sources fetches remote files by URL scheme.
type Sources struct {
	HTTP *download.Client

	// ObjectStore is created on first use of an s3:// URL.
	ObjectStore func(ctx context.Context) (ObjectStore, error)

	Registry ImageExporter
}

// Fetch stores the resource at ref in the file dst. arch selects the
// platform of OCI images.
func (s *Sources) Fetch(ctx context.Context, ref, arch, dst string) (int64, error) {
	scheme, _, ok := strings.Cut(ref, "://")
	if !ok {
		return 0, fmt.Errorf("%w: %q has no scheme", ErrUnsupportedSource, ref)
	}

	switch scheme {
	case "http", "https":
		if s.HTTP == nil {
			break
		}
		return s.HTTP.ToFile(ctx, ref, dst)

	case "s3":
		if s.ObjectStore == nil {
			break
		}
		bucket, key, err := s3.ParseURL(ref)
		if err != nil {
			return 0, err
		}
		store, err := s.ObjectStore(ctx)
		if err != nil {
			return 0, err
		}
		return toFile(dst, func(w io.Writer) (int64, error) {
			return store.Download(ctx, bucket, key, w)
		})

	case "oci":
		if s.Registry == nil {
			break
		}
		return toFile(dst, func(w io.Writer) (int64, error) {
			return s.Registry.Export(ctx, ref, arch, w)
		})
	}
	return 0, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, scheme)
}

func toFile(dst string, write func(io.Writer) (int64, error)) (int64, error) {
	// #nosec G304 - dst is a temp file or a path under the install root
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	n, err := write(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return n, nil
}
