package missingfonts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config struct
type Config struct {
	Values map[string]string
}

// S3Settings configures the s3:// font server backend.
type S3Settings struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// Settings is the resolved view of a Config.
type Settings struct {
	PackageKitNames []string
	FontServer      string
	DownloadEnabled bool
	Installer       string
	InstallCommand  []string
	InstallAsRoot   bool
	InstallTimeout  time.Duration
	DownloadTimeout time.Duration
	CatalogPath     string
	StateDir        string
	SocketPath      string
	UI              string
	FontDir         string
	InstallFonts    bool
	UserFontDir     string
	Lang            string
	TmpDir          string
	S3              S3Settings
}

// prefKeys maps the keys persisted in the prefs file to their config keys.
var prefKeys = map[string]string{
	"packagekitnames": "MFN_PACKAGEKIT_NAMES",
	"fontserver":      "MFN_FONT_SERVER",
}

// readKeyValues parses KEY=VALUE lines. Blank lines and # comments are
// skipped, values may be quoted.
func readKeyValues(r io.Reader, into map[string]string) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)
		into[key] = val
	}
	return scanner.Err()
}

// loadConfig reads each config file in order (later files win; missing files
// are skipped) and then applies MFN_* environment overrides.
func loadConfig(paths ...string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cfg, err
		}
		err = readKeyValues(file, cfg.Values)
		file.Close()
		if err != nil {
			return cfg, fmt.Errorf("reading %s: %w", path, err)
		}
		debugf("Loaded config %s\n", path)
	}

	mergeEnvOverrides(cfg)
	return cfg, nil
}

// Merge MFN_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "MFN_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
	if tmp := os.Getenv("TMPDIR"); tmp != "" {
		if _, exists := cfg.Values["TMPDIR"]; !exists {
			cfg.Values["TMPDIR"] = tmp
		}
	}
}

// applyPrefs layers persisted preferences over the config files. Environment
// overrides are merged again afterwards so they keep the last word.
func applyPrefs(cfg *Config, prefs map[string]string) {
	for pref, key := range prefKeys {
		if v, ok := prefs[pref]; ok {
			cfg.Values[key] = v
		}
	}
	mergeEnvOverrides(cfg)
}

// configPaths returns the system config followed by the per-user one.
func configPaths() []string {
	paths := []string{ConfigFile}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, appName, appName+".conf"))
	}
	return paths
}

func (c *Config) get(key, def string) string {
	if v, ok := c.Values[key]; ok {
		return v
	}
	return def
}

func (c *Config) flag(key string, def bool) bool {
	switch strings.ToLower(c.get(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func (c *Config) duration(key string, def time.Duration) time.Duration {
	v := c.get(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", key, v, def)
		return def
	}
	return d
}

func initSettings(cfg *Config) Settings {
	Debug = cfg.flag("MFN_DEBUG", Debug)

	tmpDir := cfg.get("TMPDIR", os.TempDir())

	s := Settings{
		Installer:       strings.ToLower(cfg.get("MFN_INSTALLER", "packagekit")),
		InstallCommand:  strings.Fields(cfg.get("MFN_INSTALL_COMMAND", "pkcon install -y")),
		InstallAsRoot:   cfg.flag("MFN_INSTALL_ROOT", true),
		InstallTimeout:  cfg.duration("MFN_INSTALL_TIMEOUT", 15*time.Minute),
		DownloadTimeout: cfg.duration("MFN_DOWNLOAD_TIMEOUT", 5*time.Minute),
		CatalogPath:     cfg.get("MFN_CATALOG", ""),
		StateDir:        cfg.get("MFN_STATE_DIR", defaultStateDir()),
		UI:              strings.ToLower(cfg.get("MFN_UI", "auto")),
		FontDir:         cfg.get("MFN_FONT_DIR", filepath.Join(tmpDir, downloadDirName)),
		InstallFonts:    cfg.flag("MFN_INSTALL_FONTS", false),
		UserFontDir:     cfg.get("MFN_USER_FONT_DIR", defaultUserFontDir()),
		Lang:            cfg.get("MFN_LANG", "en"),
		TmpDir:          tmpDir,
		S3: S3Settings{
			Endpoint:  cfg.get("MFN_S3_ENDPOINT", ""),
			Region:    cfg.get("MFN_S3_REGION", ""),
			AccessKey: cfg.get("MFN_S3_ACCESS_KEY_ID", ""),
			SecretKey: cfg.get("MFN_S3_SECRET_ACCESS_KEY", ""),
		},
	}

	// An explicitly empty list disables the package path.
	if v, ok := cfg.Values["MFN_PACKAGEKIT_NAMES"]; ok {
		s.PackageKitNames = splitList(v)
	} else {
		s.PackageKitNames = append([]string(nil), defaultPackageKitNames...)
	}

	// A stored "null" disables the font server.
	server := strings.TrimSpace(cfg.get("MFN_FONT_SERVER", defaultFontServer))
	if server == "null" {
		server = ""
	}
	s.FontServer = server
	s.DownloadEnabled = server != "" && cfg.flag("MFN_DOWNLOAD", true)

	s.SocketPath = cfg.get("MFN_SOCKET", defaultSocketPath())
	return s
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

func defaultUserFontDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "fonts")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "fonts")
	}
	return ""
}

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName+".sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d.sock", appName, os.Getuid()))
}
