// Package config loads and validates cognidex configuration. Settings come
// from defaults, a user config file, a project config file, and COGNIDEX_*
// environment variables, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	coreerr "github.com/cognidex/cognidex/internal/errors"
	"github.com/cognidex/cognidex/internal/search"
)

// ProjectFileName is the per-project configuration file, looked up in the
// working directory (a .yml variant is also accepted).
const ProjectFileName = ".cognidex.yaml"

// Config is the complete cognidex configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Lexical    LexicalConfig    `yaml:"lexical"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Glossary   GlossaryConfig   `yaml:"glossary"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CorpusConfig locates the knowledge base and the index artifacts.
type CorpusConfig struct {
	// Path is the corpus file or directory of chunk documents.
	Path string `yaml:"path"`
	// DataDir holds the built index artifacts.
	DataDir string `yaml:"data_dir"`
	// WatchDebounce is the quiet window before a watch-triggered rebuild,
	// as a duration string like "500ms".
	WatchDebounce string `yaml:"watch_debounce"`
}

// WatchDebounceDuration parses the debounce window, falling back to the
// default on an invalid or empty value.
func (c CorpusConfig) WatchDebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.WatchDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// DedupConfig tunes near-duplicate detection.
type DedupConfig struct {
	// ShingleSize is the word n-gram size.
	ShingleSize int `yaml:"shingle_size"`
	// Permutations is the MinHash signature length.
	Permutations int `yaml:"permutations"`
	// FingerprintBits is the LSH bucket id width.
	FingerprintBits int `yaml:"fingerprint_bits"`
	// Threshold is the combined similarity required to cluster.
	Threshold float64 `yaml:"threshold"`
	// Workers bounds the comparison pool. Zero means NumCPU.
	Workers int `yaml:"workers"`
}

// LexicalConfig tunes BM25 scoring.
type LexicalConfig struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// RetrievalConfig tunes the hybrid search pipeline.
type RetrievalConfig struct {
	// TopK is the default number of final results.
	TopK int `yaml:"top_k"`
	// DenseTopN is the dense candidate pool size before fusion.
	DenseTopN int `yaml:"dense_top_n"`
	// LexicalTopN is the lexical candidate pool size before fusion.
	LexicalTopN int `yaml:"lexical_top_n"`
	// MinScore drops candidates below it after rerank.
	MinScore float64 `yaml:"min_score"`
	// Intents overrides the built-in intent keyword sets. Empty sets keep
	// the bilingual defaults.
	Intents search.IntentRules `yaml:"intents"`
}

// EmbeddingsConfig selects and configures the embedding backend.
type EmbeddingsConfig struct {
	// Backend is ollama, openai, static, or auto.
	Backend string `yaml:"backend"`
	// Model names the embedding model; empty uses the backend default.
	Model string `yaml:"model"`
	// Dimensions pins the expected vector width. Zero means auto.
	Dimensions int `yaml:"dimensions"`
	// BatchSize is texts per embedding request.
	BatchSize int `yaml:"batch_size"`
	// OllamaHost is the Ollama API endpoint. Empty uses the default.
	OllamaHost string `yaml:"ollama_host"`
	// OpenAIBaseURL overrides the OpenAI-compatible endpoint.
	OpenAIBaseURL string `yaml:"openai_base_url"`
	// Timeout bounds one embedding request, as a duration string like "30s".
	Timeout string `yaml:"timeout"`
	// APIKey is never persisted; it comes from COGNIDEX_OPENAI_API_KEY
	// or OPENAI_API_KEY.
	APIKey string `yaml:"-"`
}

// TimeoutDuration parses the request timeout, falling back to the default on
// an invalid or empty value.
func (c EmbeddingsConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GlossaryConfig locates the bilingual term glossary.
type GlossaryConfig struct {
	// Path is the glossary YAML file. Empty disables query expansion.
	Path string `yaml:"path"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`
	// File is the log file path. Empty logs to stderr only.
	File string `yaml:"file"`
	// MaxSizeMB is the rotation threshold per file.
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxFiles is how many rotated files to keep.
	MaxFiles int `yaml:"max_files"`
	// Stderr mirrors file output to stderr.
	Stderr bool `yaml:"stderr"`
}

// Default returns the configuration with every documented default applied.
func Default() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Path:          "corpus",
			DataDir:       ".cognidex",
			WatchDebounce: "500ms",
		},
		Dedup: DedupConfig{
			ShingleSize:     3,
			Permutations:    128,
			FingerprintBits: 16,
			Threshold:       0.8,
			Workers:         runtime.NumCPU(),
		},
		Lexical: LexicalConfig{
			K1: 1.2,
			B:  0.75,
		},
		Retrieval: RetrievalConfig{
			TopK:        search.DefaultTopK,
			DenseTopN:   search.DefaultDenseTopN,
			LexicalTopN: search.DefaultLexicalTopN,
			MinScore:    search.DefaultMinScore,
		},
		Embeddings: EmbeddingsConfig{
			Backend:   "auto",
			BatchSize: 32,
			Timeout:   "30s",
		},
		Glossary: GlossaryConfig{},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
			Stderr:    true,
		},
	}
}

// UserConfigPath returns the per-user configuration file path, following the
// XDG base directory convention.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cognidex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "cognidex", "config.yaml")
	}
	return filepath.Join(home, ".config", "cognidex", "config.yaml")
}

// Load builds the effective configuration for a project directory. Precedence,
// lowest to highest: defaults, user config, project config, environment.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{ProjectFileName, ".cognidex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.mergeFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return coreerr.New(coreerr.ErrCodeConfigInvalid, "marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return coreerr.New(coreerr.ErrCodeConfigInvalid, "create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return coreerr.New(coreerr.ErrCodeConfigInvalid, "write config file", err)
	}
	return nil
}

// mergeFile overlays one YAML file onto the current values. Unset keys keep
// whatever is already in place.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return coreerr.New(coreerr.ErrCodeConfigNotFound, "read config file", err).
			WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return coreerr.New(coreerr.ErrCodeConfigInvalid, "parse config file", err).
			WithDetail("path", path)
	}
	return nil
}

// applyEnv applies COGNIDEX_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("COGNIDEX_CORPUS"); v != "" {
		c.Corpus.Path = v
	}
	if v := os.Getenv("COGNIDEX_DATA_DIR"); v != "" {
		c.Corpus.DataDir = v
	}
	if v := os.Getenv("COGNIDEX_EMBED_BACKEND"); v != "" {
		c.Embeddings.Backend = v
	}
	if v := os.Getenv("COGNIDEX_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("COGNIDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("COGNIDEX_GLOSSARY"); v != "" {
		c.Glossary.Path = v
	}
	if v := os.Getenv("COGNIDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COGNIDEX_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Retrieval.MinScore = f
		}
	}
	if v := os.Getenv("COGNIDEX_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Retrieval.TopK = k
		}
	}
	if v := os.Getenv("COGNIDEX_DEDUP_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil && t > 0 && t <= 1 {
			c.Dedup.Threshold = t
		}
	}

	if v := os.Getenv("COGNIDEX_OPENAI_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
}

// Validate checks the configuration, clamping tunables back into range and
// rejecting values that cannot be repaired.
func (c *Config) Validate() error {
	d := Default()

	if c.Dedup.ShingleSize <= 0 {
		c.Dedup.ShingleSize = d.Dedup.ShingleSize
	}
	if c.Dedup.Permutations <= 0 {
		c.Dedup.Permutations = d.Dedup.Permutations
	}
	if c.Dedup.FingerprintBits <= 0 || c.Dedup.FingerprintBits > 32 {
		c.Dedup.FingerprintBits = d.Dedup.FingerprintBits
	}
	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		c.Dedup.Threshold = d.Dedup.Threshold
	}
	if c.Dedup.Workers <= 0 {
		c.Dedup.Workers = runtime.NumCPU()
	}

	if c.Lexical.K1 <= 0 {
		c.Lexical.K1 = d.Lexical.K1
	}
	if c.Lexical.B < 0 || c.Lexical.B > 1 {
		c.Lexical.B = d.Lexical.B
	}

	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = d.Retrieval.TopK
	}
	if c.Retrieval.TopK > search.MaxTopK {
		c.Retrieval.TopK = search.MaxTopK
	}
	if c.Retrieval.DenseTopN <= 0 {
		c.Retrieval.DenseTopN = d.Retrieval.DenseTopN
	}
	if c.Retrieval.LexicalTopN <= 0 {
		c.Retrieval.LexicalTopN = d.Retrieval.LexicalTopN
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		c.Retrieval.MinScore = d.Retrieval.MinScore
	}

	if c.Embeddings.BatchSize <= 0 {
		c.Embeddings.BatchSize = d.Embeddings.BatchSize
	}
	switch strings.ToLower(c.Embeddings.Backend) {
	case "", "auto", "ollama", "openai", "static":
	default:
		return coreerr.New(coreerr.ErrCodeConfigInvalid,
			"embeddings.backend must be auto, ollama, openai, or static", nil).
			WithDetail("backend", c.Embeddings.Backend)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return coreerr.New(coreerr.ErrCodeConfigInvalid,
			"logging.level must be debug, info, warn, or error", nil).
			WithDetail("level", c.Logging.Level)
	}

	if c.Corpus.WatchDebounce == "" {
		c.Corpus.WatchDebounce = d.Corpus.WatchDebounce
	}
	if c.Corpus.Path == "" {
		c.Corpus.Path = d.Corpus.Path
	}
	if c.Corpus.DataDir == "" {
		c.Corpus.DataDir = d.Corpus.DataDir
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
