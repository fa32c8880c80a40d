package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
)

const (
	// AppName names the user config directory and the env prefix.
	AppName = "orderindex"

	// ProjectFile is the per-project config file; ProjectFileAlt is accepted
	// when ProjectFile is absent.
	ProjectFile    = ".orderindex.yaml"
	ProjectFileAlt = ".orderindex.yml"

	// DataDir holds the index database and the reindex lock.
	DataDir = ".orderindex"
)

// Config represents the complete orderindex configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Reindex ReindexConfig `yaml:"reindex" json:"reindex"`
	Query   QueryConfig   `yaml:"query" json:"query"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StorageConfig selects the SQLite database backing the index.
type StorageConfig struct {
	// Path is the database file. Relative paths resolve against the project root.
	Path string `yaml:"path" json:"path"`

	// Driver is "sqlite" (pure Go, default) or "sqlite3" (cgo).
	Driver string `yaml:"driver" json:"driver"`

	BusyTimeoutMS int `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
	CacheMB       int `yaml:"cache_mb" json:"cache_mb"`
}

// IndexConfig names the index tables.
type IndexConfig struct {
	OrderTable        string `yaml:"order_table" json:"order_table"`
	SubscriptionTable string `yaml:"subscription_table" json:"subscription_table"`
	CustomerCacheSize int    `yaml:"customer_cache_size" json:"customer_cache_size"`
}

// ReindexConfig tunes the bulk reindexer.
type ReindexConfig struct {
	BatchSize       int `yaml:"batch_size" json:"batch_size"`
	CachePurgeEvery int `yaml:"cache_purge_every" json:"cache_purge_every"`

	// LockDir holds the reindex lock file. Empty uses the database directory.
	LockDir string `yaml:"lock_dir" json:"lock_dir"`
}

// QueryConfig describes the host listing the rewriter joins against.
type QueryConfig struct {
	SourceTable    string `yaml:"source_table" json:"source_table"`
	SourceIDColumn string `yaml:"source_id_column" json:"source_id_column"`
	DefaultOrder   string `yaml:"default_order" json:"default_order"`
}

// LoggingConfig configures the file logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Path:          filepath.Join(DataDir, "orderindex.db"),
			Driver:        "sqlite",
			BusyTimeoutMS: 5000,
			CacheMB:       64,
		},
		Index: IndexConfig{
			OrderTable:        "customer_order_index",
			SubscriptionTable: "subscription_index",
			CustomerCacheSize: 4096,
		},
		Reindex: ReindexConfig{
			BatchSize:       10000,
			CachePurgeEvery: 1000,
		},
		Query: QueryConfig{
			SourceTable:    "records",
			SourceIDColumn: "id",
			DefaultOrder:   "records.id DESC",
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      "", // Empty uses ~/.orderindex/logs/orderindex.log
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/orderindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/orderindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", AppName, "config.yaml")
	}
	return filepath.Join(home, ".config", AppName, "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := readYAML(configPath, &parsed); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &parsed, nil
}

// LoadFile parses one config file on its own, without defaults, other
// layers or validation.
func LoadFile(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, coierrors.New(coierrors.ErrCodeConfigNotFound, "config file not found", nil).
			WithDetail("path", path)
	}
	var parsed Config
	if err := readYAML(path, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/orderindex/config.yaml)
//  3. Project config (.orderindex.yaml in dir)
//  4. Environment variables (ORDERINDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := LoadUserConfig()
	if err != nil {
		return nil, err
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ProjectFilePath returns the config file Load would read from dir, or ""
// when neither name exists.
func ProjectFilePath(dir string) string {
	for _, name := range []string{ProjectFile, ProjectFileAlt} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadFromFile(dir string) error {
	path := ProjectFilePath(dir)
	if path == "" {
		return nil
	}

	var parsed Config
	if err := readYAML(path, &parsed); err != nil {
		return err
	}
	c.mergeWith(&parsed)
	return nil
}

// readYAML decodes path into out. Parsing into a zero struct keeps type
// errors from being masked by defaults.
func readYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Storage
	setString(&c.Storage.Path, other.Storage.Path)
	setString(&c.Storage.Driver, other.Storage.Driver)
	setInt(&c.Storage.BusyTimeoutMS, other.Storage.BusyTimeoutMS)
	setInt(&c.Storage.CacheMB, other.Storage.CacheMB)

	// Index
	setString(&c.Index.OrderTable, other.Index.OrderTable)
	setString(&c.Index.SubscriptionTable, other.Index.SubscriptionTable)
	setInt(&c.Index.CustomerCacheSize, other.Index.CustomerCacheSize)

	// Reindex
	setInt(&c.Reindex.BatchSize, other.Reindex.BatchSize)
	setInt(&c.Reindex.CachePurgeEvery, other.Reindex.CachePurgeEvery)
	setString(&c.Reindex.LockDir, other.Reindex.LockDir)

	// Query
	setString(&c.Query.SourceTable, other.Query.SourceTable)
	setString(&c.Query.SourceIDColumn, other.Query.SourceIDColumn)
	setString(&c.Query.DefaultOrder, other.Query.DefaultOrder)

	// Logging
	setString(&c.Logging.Level, other.Logging.Level)
	setString(&c.Logging.File, other.Logging.File)
	setInt(&c.Logging.MaxSizeMB, other.Logging.MaxSizeMB)
	setInt(&c.Logging.MaxFiles, other.Logging.MaxFiles)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies ORDERINDEX_* environment variable overrides.
// Unparseable numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ORDERINDEX_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ORDERINDEX_DB_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("ORDERINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ORDERINDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Reindex.BatchSize = n
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validDrivers := map[string]bool{"sqlite": true, "sqlite3": true}
	if !validDrivers[c.Storage.Driver] {
		return coierrors.ConfigError(fmt.Sprintf("storage.driver must be 'sqlite' or 'sqlite3', got %q", c.Storage.Driver), nil).
			WithDetail("field", "storage.driver")
	}
	if c.Storage.BusyTimeoutMS < 0 {
		return invalidField("storage.busy_timeout_ms", "must be non-negative, got %d", c.Storage.BusyTimeoutMS)
	}
	if c.Storage.CacheMB < 0 {
		return invalidField("storage.cache_mb", "must be non-negative, got %d", c.Storage.CacheMB)
	}

	for field, name := range map[string]string{
		"index.order_table":        c.Index.OrderTable,
		"index.subscription_table": c.Index.SubscriptionTable,
		"query.source_table":       c.Query.SourceTable,
		"query.source_id_column":   c.Query.SourceIDColumn,
	} {
		if !isIdent(name) {
			return invalidField(field, "must be a plain SQL identifier, got %q", name)
		}
	}
	if c.Index.OrderTable == c.Index.SubscriptionTable {
		return invalidField("index.subscription_table", "must differ from index.order_table, got %q", c.Index.SubscriptionTable)
	}
	if c.Index.CustomerCacheSize < 0 {
		return invalidField("index.customer_cache_size", "must be non-negative, got %d", c.Index.CustomerCacheSize)
	}

	if c.Reindex.BatchSize <= 0 {
		return invalidField("reindex.batch_size", "must be positive, got %d", c.Reindex.BatchSize)
	}
	if c.Reindex.CachePurgeEvery < 0 {
		return invalidField("reindex.cache_purge_every", "must be non-negative, got %d", c.Reindex.CachePurgeEvery)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalidField("logging.level", "must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return invalidField("logging", "max_size_mb and max_files must be non-negative, got %d/%d", c.Logging.MaxSizeMB, c.Logging.MaxFiles)
	}

	return nil
}

func invalidField(field, format string, args ...any) error {
	return coierrors.ConfigError(field+" "+fmt.Sprintf(format, args...), nil).WithDetail("field", field)
}

// isIdent matches the identifier rule the store enforces on table names.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeNewDefaults fills fields an older config file left unset.
// Returns the names of the fields that were added.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Storage.CacheMB == 0 {
		c.Storage.CacheMB = defaults.Storage.CacheMB
		added = append(added, "storage.cache_mb")
	}
	if c.Index.CustomerCacheSize == 0 {
		c.Index.CustomerCacheSize = defaults.Index.CustomerCacheSize
		added = append(added, "index.customer_cache_size")
	}
	if c.Reindex.CachePurgeEvery == 0 {
		c.Reindex.CachePurgeEvery = defaults.Reindex.CachePurgeEvery
		added = append(added, "reindex.cache_purge_every")
	}
	if c.Query.DefaultOrder == "" {
		c.Query.DefaultOrder = defaults.Query.DefaultOrder
		added = append(added, "query.default_order")
	}

	return added
}

// ResolvePath returns p joined to root unless p is absolute.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// FindProjectRoot finds the project root directory.
// It looks for .git or an .orderindex.yaml/.yml file walking up from startDir.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) || ProjectFilePath(currentDir) != "" {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
