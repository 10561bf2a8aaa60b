package missingfonts

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

var fontExtensions = []string{".ttf", ".otf", ".ttc", ".otc", ".woff", ".woff2", ".pfb", ".pcf"}

// isFontFile reports whether name looks like a font file.
func isFontFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range fontExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// isFontArchive reports whether name is an archive extractFontArchive handles.
func isFontArchive(name string) bool {
	n := strings.ToLower(name)
	for _, suffix := range []string{".zip", ".tar", ".tar.gz", ".tgz", ".tar.xz", ".tar.zst"} {
		if strings.HasSuffix(n, suffix) {
			return true
		}
	}
	return false
}

// extractFontArchive copies the font files found in archive into dest,
// flattening directories. Other members are skipped. It returns the paths
// written.
func extractFontArchive(archive, dest string) ([]string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(archive), ".zip") {
		return extractFontZip(archive, dest)
	}

	f, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archive, err)
	}
	defer f.Close()

	var r io.Reader = f
	name := strings.ToLower(archive)
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", archive, err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader for %s: %w", archive, err)
		}
		r = xzr
	case strings.HasSuffix(name, ".tar.zst"):
		zst, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader for %s: %w", archive, err)
		}
		defer zst.Close()
		r = zst
	case strings.HasSuffix(name, ".tar"):
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", archive)
	}

	var written []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, fmt.Errorf("reading %s: %w", archive, err)
		}
		if hdr.Typeflag != tar.TypeReg || !isFontFile(hdr.Name) {
			continue
		}
		path, err := writeFontFile(dest, hdr.Name, tr)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func extractFontZip(archive, dest string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var written []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isFontFile(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return written, err
		}
		path, err := writeFontFile(dest, f.Name, rc)
		rc.Close()
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// writeFontFile writes r to dest/base(name). Taking the base name keeps
// members from escaping dest.
func writeFontFile(dest, name string, r io.Reader) (string, error) {
	path := filepath.Join(dest, filepath.Base(name))
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, out.Close()
}
