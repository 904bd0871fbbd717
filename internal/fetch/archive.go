package fetch

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// DishesDir is the repository directory holding recipe documents.
const DishesDir = "dishes"

// maxEntryBytes caps a single extracted document.
const maxEntryBytes = 16 << 20

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// ErrUnsafePath is returned for archive entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Extract unpacks the Markdown documents under <root>/dishes/<category>/ of a
// zip, tar.gz or tar.xz archive into destDir/<category>/<file>. Nested
// directories below the category are flattened. It returns the written paths
// in archive order.
func Extract(archivePath, destDir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(xzMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read archive header: %w", err)
	}
	head = head[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind archive: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return extractZip(archivePath, destDir)
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		return extractTar(gz, destDir)
	case bytes.HasPrefix(head, xzMagic):
		xr, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("open xz: %w", err)
		}
		return extractTar(xr, destDir)
	default:
		return nil, fmt.Errorf("unrecognized archive format: %s", archivePath)
	}
}

func extractZip(archivePath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsafePath, archivePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	var written []string
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		target, ok, err := dishTarget(zf.Name, destDir)
		if err != nil {
			return written, err
		}
		if !ok {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return written, fmt.Errorf("open %s: %w", zf.Name, err)
		}
		err = writeEntry(target, rc)
		rc.Close()
		if err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

func extractTar(r io.Reader, destDir string) ([]string, error) {
	tr := tar.NewReader(r)
	var written []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return written, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return written, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		target, ok, err := dishTarget(hdr.Name, destDir)
		if err != nil {
			return written, err
		}
		if !ok {
			continue
		}
		if err := writeEntry(target, tr); err != nil {
			return written, err
		}
		written = append(written, target)
	}
}

// dishTarget maps an archive entry name to its destination. ok is false for
// entries that are not dish documents.
func dishTarget(name, destDir string) (target string, ok bool, err error) {
	var parts []string
	for _, p := range strings.Split(strings.ReplaceAll(name, `\`, "/"), "/") {
		switch p {
		case "", ".":
			continue
		case "..":
			return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
		}
		parts = append(parts, p)
	}
	if len(parts) < 4 || parts[1] != DishesDir {
		return "", false, nil
	}
	file := parts[len(parts)-1]
	if !strings.EqualFold(path.Ext(file), ".md") {
		return "", false, nil
	}
	rel := filepath.Join(parts[2], file)
	if !filepath.IsLocal(rel) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(destDir, rel), true, nil
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create category directory: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	n, err := io.Copy(out, io.LimitReader(r, maxEntryBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if n > maxEntryBytes {
		return fmt.Errorf("write %s: entry exceeds %d bytes", target, maxEntryBytes)
	}
	return nil
}
