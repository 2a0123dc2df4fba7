package config

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/saferoute-dev/saferoute/internal/errors"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "saferoute.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SAFEROUTE_"

	// DefaultOut is the default artifact path.
	DefaultOut = "generated/routes.d.ts"

	// DefaultDebounce is the default quiet interval in watch mode.
	DefaultDebounce = 150 * time.Millisecond

	// DefaultPollInterval is the default filesystem polling interval. It
	// must not exceed the debounce, or one burst of edits split across two
	// polls regenerates twice.
	DefaultPollInterval = 50 * time.Millisecond
)

// Config represents the saferoute.json configuration.
type Config struct {
	// Type is the routing convention (react, next-app, next-page).
	Type string `json:"type,omitempty"`

	// Out is the artifact path, relative to the project root.
	Out string `json:"out,omitempty"`

	// Mode is the emission mode (flat, hierarchy).
	Mode string `json:"mode,omitempty"`

	// RoutesDir overrides the route directory of the Next.js conventions.
	RoutesDir string `json:"routesDir,omitempty"`

	// Source overrides the route source of the react convention.
	Source string `json:"source,omitempty"`

	// PageExtensions overrides the recognized page file extensions.
	PageExtensions []string `json:"pageExtensions,omitempty"`

	// Watch contains watch mode configuration.
	Watch WatchConfig `json:"watch,omitempty"`

	// Publish contains artifact publishing configuration.
	Publish PublishConfig `json:"publish,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// dir is the project root.
	dir string
}

// WatchConfig contains watch mode settings.
type WatchConfig struct {
	// Debounce is the quiet interval before a pass (e.g., "100ms").
	Debounce string `json:"debounce,omitempty"`

	// PollInterval is how often watched paths are polled.
	PollInterval string `json:"pollInterval,omitempty"`

	// Paths are extra paths to watch, relative to the project root.
	Paths []string `json:"paths,omitempty"`

	// Ignore contains glob patterns to ignore.
	Ignore []string `json:"ignore,omitempty"`

	// StatusAddr is the listen address of the status server. Empty disables it.
	StatusAddr string `json:"statusAddr,omitempty"`

	// SkipInitial skips the pass that runs when watching starts.
	SkipInitial bool `json:"skipInitial,omitempty"`
}

// PublishConfig contains S3 artifact publishing settings.
type PublishConfig struct {
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Type: string(router.ProjectReact),
		Out:  DefaultOut,
		Mode: string(router.ModeHierarchy),
		Watch: WatchConfig{
			Debounce:     DefaultDebounce.String(),
			PollInterval: DefaultPollInterval.String(),
		},
	}
}

// Load reads configuration for the project in dir. A missing
// saferoute.json yields the defaults. The project's .env file is loaded
// into the environment and SAFEROUTE_* variables override file values.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New("E130").Wrap(err)
	}
	if err := loadDotEnv(abs); err != nil {
		return nil, err
	}

	cfg := New()
	path := filepath.Join(abs, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.dir = abs

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from an explicit file path. The project
// root is the file's directory.
func LoadFile(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New("E130").Wrap(err)
	}
	if err := loadDotEnv(filepath.Dir(abs)); err != nil {
		return nil, err
	}
	cfg, err := readFile(abs)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E130").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Run 'saferoute init' to create one")
		}
		return nil, errors.New("E130").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E130").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON").
			Wrap(err)
	}

	cfg.configPath = path
	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()
	return cfg, nil
}

func loadDotEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err == nil || stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.New("E130").
		WithDetail("Failed to load .env: " + err.Error()).
		Wrap(err)
}

// ApplyEnv overrides fields with SAFEROUTE_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"TYPE":             &c.Type,
		"OUT":              &c.Out,
		"MODE":             &c.Mode,
		"ROUTES_DIR":       &c.RoutesDir,
		"SOURCE":           &c.Source,
		"DEBOUNCE":         &c.Watch.Debounce,
		"POLL_INTERVAL":    &c.Watch.PollInterval,
		"STATUS_ADDR":      &c.Watch.StatusAddr,
		"PUBLISH_BUCKET":   &c.Publish.Bucket,
		"PUBLISH_PREFIX":   &c.Publish.Prefix,
		"PUBLISH_REGION":   &c.Publish.Region,
		"PUBLISH_ENDPOINT": &c.Publish.Endpoint,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "PAGE_EXTENSIONS"); ok {
		c.PageExtensions = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "WATCH_IGNORE"); ok {
		c.Watch.Ignore = splitList(v)
	}

	bools := map[string]*bool{
		"SKIP_INITIAL":       &c.Watch.SkipInitial,
		"PUBLISH_PATH_STYLE": &c.Publish.PathStyle,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.New("E130").
				WithDetail(EnvPrefix + key + " must be a boolean, got " + strconv.Quote(v)).
				Wrap(err)
		}
		*dst = b
	}

	c.applyDefaults()
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Type == "" {
		c.Type = string(router.ProjectReact)
	}
	if c.Out == "" {
		c.Out = DefaultOut
	}
	if c.Mode == "" {
		c.Mode = string(router.ModeHierarchy)
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = DefaultDebounce.String()
	}
	if c.Watch.PollInterval == "" {
		c.Watch.PollInterval = DefaultPollInterval.String()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := router.ParseProjectType(c.Type); err != nil {
		return errors.New("E101").Wrap(err)
	}
	if _, err := router.ParseMode(c.Mode); err != nil {
		return errors.New("E102").Wrap(err)
	}
	for name, value := range map[string]string{
		"watch.debounce":     c.Watch.Debounce,
		"watch.pollInterval": c.Watch.PollInterval,
	} {
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return errors.New("E130").
				WithDetail(name + " must be a positive duration, got " + strconv.Quote(value))
		}
	}
	if debounce, poll := c.Debounce(), c.PollInterval(); debounce < poll {
		return errors.New("E130").
			WithDetail("watch.debounce (" + debounce.String() + ") is shorter than watch.pollInterval (" + poll.String() + ")").
			WithSuggestion("Set watch.pollInterval no longer than watch.debounce")
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E130").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E130").Wrap(err)
	}

	c.configPath = path
	c.dir = filepath.Dir(path)
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root.
func (c *Config) Dir() string {
	return c.dir
}

// ProjectType returns the parsed routing convention.
func (c *Config) ProjectType() router.ProjectType {
	pt, _ := router.ParseProjectType(c.Type)
	return pt
}

// EmitMode returns the parsed emission mode.
func (c *Config) EmitMode() router.Mode {
	m, _ := router.ParseMode(c.Mode)
	return m
}

// OutputPath returns the absolute artifact path.
func (c *Config) OutputPath() string {
	return c.resolve(c.Out)
}

// ScanOptions returns the adapter options.
func (c *Config) ScanOptions() router.ScanOptions {
	return router.ScanOptions{
		RoutesDir:      filepath.ToSlash(c.RoutesDir),
		Source:         filepath.ToSlash(c.Source),
		PageExtensions: c.PageExtensions,
	}
}

// Debounce returns the watch quiet interval.
func (c *Config) Debounce() time.Duration {
	return parseDuration(c.Watch.Debounce, DefaultDebounce)
}

// PollInterval returns the filesystem polling interval.
func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Watch.PollInterval, DefaultPollInterval)
}

// WatchPaths returns the extra watch paths, resolved against the project
// root.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Watch.Paths))
	for _, p := range c.Watch.Paths {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
