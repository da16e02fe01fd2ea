package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration.
type Config struct {
	Username string `toml:"username"`
	Password string `toml:"password"`

	Domains           []string      `toml:"course_domains"`
	DownloadDelay     time.Duration `toml:"delay_between_downloads"`
	CourseDelay       time.Duration `toml:"delay_between_courses"`
	RetryAttempts     int           `toml:"retry_attempts"`
	RetryDelay        time.Duration `toml:"retry_delay"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	DownloadDir       string        `toml:"download_dir"`
	StatusAddr        string        `toml:"status_addr"`

	Progress   ProgressConfig   `toml:"progress"`
	Downloader DownloaderConfig `toml:"downloader"`
	Media      MediaConfig      `toml:"media"`
	Provider   ProviderConfig   `toml:"provider"`
	Log        LogConfig        `toml:"log"`
}

// ProgressConfig selects where progress is persisted.
type ProgressConfig struct {
	Backend string `toml:"backend"` // json or sqlite
	Path    string `toml:"path"`
}

// DownloaderConfig selects the download backend. Args may contain the
// {url} and {output} placeholders.
type DownloaderConfig struct {
	Backend string   `toml:"backend"` // native or command
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// MediaConfig holds the requested rendition.
type MediaConfig struct {
	Quality   string `toml:"quality"`
	Locale    string `toml:"locale"`
	MediaType string `toml:"media_type"`
}

// ProviderConfig holds the provider endpoints.
type ProviderConfig struct {
	SitemapURL  string `toml:"sitemap_url"`
	CoursePath  string `toml:"course_path"`
	LoginURL    string `toml:"login_url"`
	LoginAction string `toml:"login_action"`
	MetadataURL string `toml:"metadata_url"`
	QueryURL    string `toml:"query_url"`
	UserAgent   string `toml:"user_agent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultDomains are the course audiences downloaded by default.
var DefaultDomains = []string{
	"software-development",
	"it-ops",
	"data-professional",
	"security-professional",
}

// DefaultConfigPath returns the config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "coursedl", "config.toml")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Default returns the built-in configuration. Provider endpoints are
// left empty and filled from provider.DefaultEndpoints by the caller.
func Default() *Config {
	return &Config{
		Domains:       append([]string(nil), DefaultDomains...),
		DownloadDelay: 10 * time.Second,
		CourseDelay:   10 * time.Second,
		RetryAttempts: 5,
		RetryDelay:    4 * time.Second,
		DownloadDir:   "Downloads",
		Progress: ProgressConfig{
			Backend: "json",
			Path:    "course_downloads.json",
		},
		Downloader: DownloaderConfig{
			Backend: "native",
			Command: "wget",
			Args:    []string{"-c", "-O", "{output}", "{url}"},
		},
		Media: MediaConfig{
			Quality:   "1280x720",
			Locale:    "en",
			MediaType: "mp4",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadFile decodes a TOML file over cfg. Keys missing from the file keep
// their current value.
func LoadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return nil
}

// Load builds Config from defaults, the config file, args and environment,
// in increasing precedence.
func Load(args []string) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("coursedl", flag.ContinueOnError)
	configPath := fs.String("config", DefaultConfigPath(), "TOML config file")
	fs.StringVar(&cfg.Username, "username", cfg.Username, "Account user name")
	fs.StringVar(&cfg.DownloadDir, "download-dir", cfg.DownloadDir, "Download directory")
	fs.StringVar(&cfg.Progress.Backend, "progress-backend", cfg.Progress.Backend, "Progress store: json or sqlite")
	fs.StringVar(&cfg.Progress.Path, "progress", cfg.Progress.Path, "Progress file path")
	fs.StringVar(&cfg.Downloader.Backend, "downloader", cfg.Downloader.Backend, "Download backend: native or command")
	fs.DurationVar(&cfg.DownloadDelay, "download-delay", cfg.DownloadDelay, "Pause after every clip")
	fs.DurationVar(&cfg.CourseDelay, "course-delay", cfg.CourseDelay, "Pause after every course")
	fs.IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "Attempts per media request")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Pause between attempts")
	fs.Float64Var(&cfg.RequestsPerSecond, "rps", cfg.RequestsPerSecond, "Request rate ceiling, 0 disables")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Rotating JSON log file")
	fs.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "Status server address, empty disables")
	fs.Func("domains", "Comma separated accepted course domains", func(s string) error {
		cfg.Domains = splitList(s)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	path := ExpandPath(*configPath)
	if _, err := os.Stat(path); err == nil || explicit {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
		// flags win over the file
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	// Env overrides
	if v := os.Getenv("COURSEDL_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("COURSEDL_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("COURSEDL_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
	if v := os.Getenv("COURSEDL_PROGRESS"); v != "" {
		cfg.Progress.Path = v
	}

	cfg.DownloadDir = ExpandPath(cfg.DownloadDir)
	cfg.Progress.Path = ExpandPath(cfg.Progress.Path)
	cfg.Log.File = ExpandPath(cfg.Log.File)
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("password is required (COURSEDL_PASSWORD)"))
	}
	if len(c.Domains) == 0 {
		errs = append(errs, errors.New("course_domains is empty"))
	}
	if c.DownloadDelay < 0 || c.CourseDelay < 0 || c.RetryDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry_attempts must be at least 1, got %d", c.RetryAttempts))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests_per_second must not be negative"))
	}
	switch c.Progress.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown progress backend %q", c.Progress.Backend))
	}
	if c.Progress.Path == "" {
		errs = append(errs, errors.New("progress path is empty"))
	}
	switch c.Downloader.Backend {
	case "native":
	case "command":
		if c.Downloader.Command == "" {
			errs = append(errs, errors.New("downloader command is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown downloader %q", c.Downloader.Backend))
	}
	if c.DownloadDir == "" {
		errs = append(errs, errors.New("download_dir is empty"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
