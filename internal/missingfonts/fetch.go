package missingfonts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"
)

// Downloader fetches the font file of a remedy and returns where it was saved.
type Downloader interface {
	Download(ctx context.Context, url string, remedy Remedy) (string, error)
}

// FontFetcher saves fonts under Dir (or FallbackDir when Dir cannot be
// created) and optionally installs them into UserFontDir.
type FontFetcher struct {
	Dir         string
	FallbackDir string
	// UseTools tries curl, then wget, before the native HTTP client.
	UseTools bool
	// Quiet hides the native client's progress bar.
	Quiet        bool
	InstallFonts bool
	UserFontDir  string
	Client       *http.Client
	S3           S3Settings
	Exec         *Executor

	s3Once sync.Once
	s3     *S3Fetcher
	s3Err  error
}

// NewFontFetcher configures a fetcher from settings. Progress output is off
// until Quiet is cleared.
func NewFontFetcher(s Settings) *FontFetcher {
	return &FontFetcher{
		Dir:          s.FontDir,
		FallbackDir:  s.TmpDir,
		UseTools:     true,
		Quiet:        true,
		InstallFonts: s.InstallFonts,
		UserFontDir:  s.UserFontDir,
		Client:       newHTTPClient(),
		S3:           s.S3,
		Exec:         &Executor{},
	}
}

func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second
	return &http.Client{Transport: transport}
}

func (f *FontFetcher) targetDir() (string, error) {
	err := os.MkdirAll(f.Dir, 0o755)
	if err == nil {
		return f.Dir, nil
	}
	if f.FallbackDir == "" {
		return "", fmt.Errorf("failed to create font directory %s: %w", f.Dir, err)
	}
	debugf("Cannot create %s (%v), using %s\n", f.Dir, err, f.FallbackDir)
	if err := os.MkdirAll(f.FallbackDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create font directory %s: %w", f.FallbackDir, err)
	}
	return f.FallbackDir, nil
}

// fileName returns the last path element of rawURL.
func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in %s", rawURL)
	}
	return name, nil
}

// Download fetches rawURL, verifies its BLAKE3 digest when the remedy has one
// and installs it when InstallFonts is set. Concurrent downloads of the same
// file are serialized by a lock file next to it, which stays in place; a file
// already present and valid is reused.
func (f *FontFetcher) Download(ctx context.Context, rawURL string, remedy Remedy) (string, error) {
	name, err := fileName(rawURL)
	if err != nil {
		return "", err
	}
	dir, err := f.targetDir()
	if err != nil {
		return "", err
	}
	absPath := filepath.Join(dir, name)

	lockPath := absPath + ".lock"
	lFile, err := os.Create(lockPath)
	if err != nil {
		return "", fmt.Errorf("failed to create lock file: %w", err)
	}
	defer lFile.Close()
	if err := unix.Flock(int(lFile.Fd()), unix.LOCK_EX); err != nil {
		return "", fmt.Errorf("failed to acquire lock for download: %w", err)
	}
	defer unix.Flock(int(lFile.Fd()), unix.LOCK_UN)

	// A holder of the lock may have finished the same file meanwhile.
	if _, err := os.Stat(absPath); err == nil {
		if err := verifyB3Sum(absPath, remedy.B3Sum); err == nil {
			debugf("%s already downloaded\n", absPath)
			return f.finish(ctx, absPath, name)
		}
	}

	partPath := absPath + ".part"
	debugf("Downloading %s -> %s\n", rawURL, absPath)
	if strings.HasPrefix(rawURL, "s3://") {
		err = f.fetchS3(ctx, rawURL, partPath)
	} else {
		err = f.fetchHTTP(ctx, rawURL, partPath)
	}
	if err == nil {
		err = verifyB3Sum(partPath, remedy.B3Sum)
	}
	if err == nil {
		err = os.Rename(partPath, absPath)
	}
	if err != nil {
		_ = os.Remove(partPath)
		return "", err
	}

	if info, err := os.Stat(absPath); err == nil {
		debugf("Saved %s (%s)\n", absPath, humanize.Bytes(uint64(info.Size())))
	}
	return f.finish(ctx, absPath, name)
}

func (f *FontFetcher) finish(ctx context.Context, absPath, name string) (string, error) {
	if f.InstallFonts {
		if err := f.install(ctx, absPath); err != nil {
			return absPath, fmt.Errorf("installing %s: %w", name, err)
		}
	}
	return absPath, nil
}

func (f *FontFetcher) fetchS3(ctx context.Context, rawURL, dest string) error {
	f.s3Once.Do(func() {
		f.s3, f.s3Err = NewS3Fetcher(ctx, f.S3)
	})
	if f.s3Err != nil {
		return f.s3Err
	}
	return f.s3.Fetch(ctx, rawURL, dest)
}

func (f *FontFetcher) fetchHTTP(ctx context.Context, rawURL, dest string) error {
	if f.UseTools {
		if _, err := exec.LookPath("curl"); err == nil {
			var stderr bytes.Buffer
			cmd := exec.CommandContext(ctx, "curl", "-L", "--fail", "-sS", "-o", dest, rawURL)
			cmd.Stderr = &stderr
			if err := cmd.Run(); err == nil {
				return nil
			} else if ctx.Err() != nil {
				return fmt.Errorf("download aborted: %w", ctx.Err())
			}
			debugf("curl failed (%s), falling back to wget\n", strings.TrimSpace(stderr.String()))
		} else {
			debugf("curl not found, trying wget\n")
		}

		if _, err := exec.LookPath("wget"); err == nil {
			cmd := exec.CommandContext(ctx, "wget", "-q", "-O", dest, rawURL)
			if err := cmd.Run(); err == nil {
				return nil
			} else if ctx.Err() != nil {
				return fmt.Errorf("download aborted: %w", ctx.Err())
			}
			debugf("wget failed, falling back to native Go HTTP client\n")
		} else {
			debugf("wget not found, using native Go HTTP client\n")
		}
	}

	client := f.Client
	if client == nil {
		client = newHTTPClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("native http get failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dest, err)
	}
	var w io.Writer = out
	if !f.Quiet {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(logOutput),
			progressbar.OptionSetDescription(filepath.Base(strings.TrimSuffix(dest, ".part"))),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		w = io.MultiWriter(out, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write to destination file: %w", err)
	}
	return out.Close()
}

// install copies a font, or the fonts inside an archive, into UserFontDir and
// refreshes the fontconfig cache.
func (f *FontFetcher) install(ctx context.Context, file string) error {
	if f.UserFontDir == "" {
		return errors.New("no user font directory")
	}
	var installed []string
	switch {
	case isFontArchive(file):
		paths, err := extractFontArchive(file, f.UserFontDir)
		if err != nil {
			return err
		}
		installed = paths
	case isFontFile(file):
		if err := os.MkdirAll(f.UserFontDir, 0o755); err != nil {
			return err
		}
		src, err := os.Open(file)
		if err != nil {
			return err
		}
		p, err := writeFontFile(f.UserFontDir, file, src)
		src.Close()
		if err != nil {
			return err
		}
		installed = append(installed, p)
	default:
		return fmt.Errorf("not a font file: %s", filepath.Base(file))
	}
	if len(installed) == 0 {
		return fmt.Errorf("no fonts found in %s", filepath.Base(file))
	}
	arrowf(colSuccess, "Installed %d font file(s) into %s\n", len(installed), f.UserFontDir)

	if _, err := exec.LookPath("fc-cache"); err != nil {
		debugf("fc-cache not found, skipping cache refresh\n")
		return nil
	}
	executor := f.Exec
	if executor == nil {
		executor = &Executor{}
	}
	return executor.Run(ctx, exec.Command("fc-cache", "-f", f.UserFontDir))
}
