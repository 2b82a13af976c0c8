package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/answer-grader/internal/audio"
	"github.com/spigell/answer-grader/internal/cache"
	"github.com/spigell/answer-grader/internal/scoring"
	"github.com/spigell/answer-grader/internal/server"
	"github.com/spigell/answer-grader/internal/speech"
)

const (
	app       = "answer-grader"
	envPrefix = "ANSWER_GRADER"
)

type Config struct {
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    server.Config   `mapstructure:"server"`
}

type ScoringConfig struct {
	Range                 float64             `mapstructure:"range"`
	Weights               scoring.Weights     `mapstructure:"weights"`
	Thresholds            scoring.Thresholds  `mapstructure:"thresholds"`
	CopyLexicalThreshold  float64             `mapstructure:"copy-lexical-threshold"`
	CopySemanticThreshold float64             `mapstructure:"copy-semantic-threshold"`
	MaxKeywords           int                 `mapstructure:"max-keywords"`
	Fillers               []string            `mapstructure:"fillers"`
	RolesFile             string              `mapstructure:"roles-file"`
	Roles                 map[string][]string `mapstructure:"roles"`
}

type EmbeddingConfig struct {
	// Provider is one of hashing, openai or gemini.
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

type GeneratorConfig struct {
	// Provider is one of openai, gemini or none.
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SpeechConfig struct {
	// Provider is one of openai, google or none.
	Provider    string              `mapstructure:"provider"`
	Model       string              `mapstructure:"model"`
	Language    string              `mapstructure:"language"`
	FFmpeg      string              `mapstructure:"ffmpeg"`
	MaxDuration time.Duration       `mapstructure:"max-duration"`
	Google      speech.GoogleConfig `mapstructure:"google"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	BaseURL    string        `mapstructure:"base-url"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
}

type CacheConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	cache.Config `mapstructure:",squash"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "answer-grader scores interview answers and transcribes recorded ones",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is answer-grader.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// setDefaults registers every key so that environment variables can override
// values absent from the config file.
func setDefaults(v *viper.Viper) {
	weights := scoring.DefaultWeights()
	thresholds := scoring.DefaultThresholds()
	copyDetector := scoring.NewCopyDetector()
	coverage := scoring.NewCoverageScorer()
	srv := server.DefaultConfig()

	v.SetDefault("scoring.range", float64(scoring.DefaultRange))
	v.SetDefault("scoring.weights.semantic", weights.Semantic)
	v.SetDefault("scoring.weights.coverage", weights.Coverage)
	v.SetDefault("scoring.weights.density", weights.Density)
	v.SetDefault("scoring.thresholds.excellent", thresholds.Excellent)
	v.SetDefault("scoring.thresholds.good", thresholds.Good)
	v.SetDefault("scoring.thresholds.fair", thresholds.Fair)
	v.SetDefault("scoring.copy-lexical-threshold", copyDetector.LexicalThreshold)
	v.SetDefault("scoring.copy-semantic-threshold", copyDetector.SemanticThreshold)
	v.SetDefault("scoring.max-keywords", coverage.MaxKeywords)
	v.SetDefault("scoring.fillers", scoring.DefaultFillers)
	v.SetDefault("scoring.roles-file", "")

	v.SetDefault("embedding.provider", providerHashing)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimension", 0)

	v.SetDefault("generator.provider", providerOpenAI)
	v.SetDefault("generator.model", "")
	v.SetDefault("generator.timeout", time.Minute)

	v.SetDefault("speech.provider", providerOpenAI)
	v.SetDefault("speech.model", "")
	v.SetDefault("speech.language", "")
	v.SetDefault("speech.ffmpeg", "ffmpeg")
	v.SetDefault("speech.max-duration", audio.DefaultMaxDuration)
	v.SetDefault("speech.google.credentials-file", "")
	v.SetDefault("speech.google.language", "")
	v.SetDefault("speech.google.model", "")

	v.SetDefault("gemini.api-key", "")
	v.SetDefault("gemini.api-key-file", "")
	v.SetDefault("gemini.max-retries", 3)

	v.SetDefault("openai.base-url", "")
	v.SetDefault("openai.api-key", "")
	v.SetDefault("openai.api-key-file", "")
	v.SetDefault("openai.timeout", time.Minute)
	v.SetDefault("openai.max-retries", 3)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.prefix", "")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("server.addr", srv.Addr)
	v.SetDefault("server.read-timeout", srv.ReadTimeout)
	v.SetDefault("server.write-timeout", srv.WriteTimeout)
	v.SetDefault("server.idle-timeout", srv.IdleTimeout)
	v.SetDefault("server.shutdown-timeout", srv.ShutdownTimeout)
	v.SetDefault("server.cors-origins", srv.CORSOrigins)
	v.SetDefault("server.max-upload-bytes", srv.MaxUploadBytes)
	v.SetDefault("server.max-body-bytes", srv.MaxBodyBytes)
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
