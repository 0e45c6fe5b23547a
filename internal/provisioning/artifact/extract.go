package artifact

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for archive entries that would land outside the
// extraction root.
var ErrUnsafePath = errors.New("archive entry escapes install root")

// Extract unpacks the archive at src into root and returns the number of
// regular files written.
func Extract(format Format, src, root string) (int, error) {
	g, err := newGuard(root)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatTarGz, FormatTar:
		// #nosec G304 - src is the downloaded temp file
		f, err := os.Open(src)
		if err != nil {
			return 0, err
		}
		defer func() { _ = f.Close() }()

		var r io.Reader = f
		if format == FormatTarGz {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return 0, fmt.Errorf("invalid gzip stream: %w", err)
			}
			defer func() { _ = gz.Close() }()
			r = gz
		}
		return extractTar(r, g)
	case FormatZip:
		return extractZip(src, g)
	default:
		return 0, fmt.Errorf("%w: archive format %s", ErrUnsupportedSource, format)
	}
}

// guard keeps extracted entries inside root. Names are checked lexically
// and every path is checked again against the symlinks already on disk.
type guard struct {
	root     string
	realRoot string
}

func newGuard(root string) (*guard, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve install root: %w", err)
	}
	return &guard{root: root, realRoot: resolved}, nil
}

// join resolves name under root, rejecting traversal.
func (g *guard) join(name string) (string, error) {
	dst := filepath.Join(g.root, name)
	if !within(g.root, dst) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return dst, nil
}

// resolve follows the symlinks of the deepest existing ancestor of path
// (path included) and returns the real location of path. Components that
// do not exist yet are created as plain directories, so they cannot
// redirect it.
func (g *guard) resolve(path string) (string, error) {
	existing, rest := path, ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if existing == g.root {
			break
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = filepath.Dir(existing)
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		// dangling link on the way
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, path)
	}
	resolved = filepath.Join(resolved, rest)
	if !within(g.realRoot, resolved) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrUnsafePath, path, resolved)
	}
	return resolved, nil
}

// parent checks that the directory holding dst stays inside root.
func (g *guard) parent(dst string) error {
	_, err := g.resolve(filepath.Dir(dst))
	return err
}

// link rejects symlink targets that resolve outside root.
func (g *guard) link(dst, target string) error {
	if filepath.IsAbs(target) {
		return fmt.Errorf("%w: absolute link %s -> %s", ErrUnsafePath, dst, target)
	}
	dir, err := g.resolve(filepath.Dir(dst))
	if err != nil {
		return err
	}
	if !within(g.realRoot, filepath.Join(dir, target)) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, dst, target)
	}
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func extractTar(r io.Reader, g *guard) (int, error) {
	files := 0
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return files, fmt.Errorf("invalid tar stream: %w", err)
		}

		dst, err := g.join(hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if _, err := g.resolve(dst); err != nil {
				return files, err
			}
			if err := os.MkdirAll(dst, dirMode(hdr.FileInfo().Mode())); err != nil {
				return files, err
			}
		case tar.TypeReg:
			if err := writeFile(g, dst, tr, hdr.FileInfo().Mode()); err != nil {
				return files, err
			}
			files++
		case tar.TypeSymlink:
			if err := symlink(g, dst, hdr.Linkname); err != nil {
				return files, err
			}
		case tar.TypeLink:
			target, err := g.join(hdr.Linkname)
			if err != nil {
				return files, err
			}
			if err := g.parent(target); err != nil {
				return files, err
			}
			if err := g.parent(dst); err != nil {
				return files, err
			}
			if err := replace(dst); err != nil {
				return files, err
			}
			if err := os.Link(target, dst); err != nil {
				return files, err
			}
			files++
		default:
			// devices, fifos and pax metadata have no place in a bundle
		}
	}
}

func extractZip(src string, g *guard) (int, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("invalid zip archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	files := 0
	for _, f := range zr.File {
		dst, err := g.join(f.Name)
		if err != nil {
			return files, err
		}
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if _, err := g.resolve(dst); err != nil {
				return files, err
			}
			if err := os.MkdirAll(dst, dirMode(mode)); err != nil {
				return files, err
			}
		case mode&os.ModeSymlink != 0:
			target, err := readZipEntry(f)
			if err != nil {
				return files, err
			}
			if err := symlink(g, dst, target); err != nil {
				return files, err
			}
		default:
			rc, err := f.Open()
			if err != nil {
				return files, err
			}
			err = writeFile(g, dst, rc, mode)
			_ = rc.Close()
			if err != nil {
				return files, err
			}
			files++
		}
	}
	return files, nil
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeFile(g *guard, dst string, r io.Reader, mode os.FileMode) error {
	if err := g.parent(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := replace(dst); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	// #nosec G304 - dst was validated by the guard
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// umask may have masked the archive permissions
	return os.Chmod(dst, perm)
}

func symlink(g *guard, dst, target string) error {
	if err := g.link(dst, target); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := replace(dst); err != nil {
		return err
	}
	return os.Symlink(target, dst)
}

// replace removes a non-directory entry at dst so a later archive entry wins.
func replace(dst string) error {
	fi, err := os.Lstat(dst)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return nil
	}
	return os.Remove(dst)
}

func dirMode(mode os.FileMode) os.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm | 0o700
	}
	return 0o755
}
