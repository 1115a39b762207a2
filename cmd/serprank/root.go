package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FranksOps/serprank/internal/input"
	"github.com/FranksOps/serprank/internal/secrets"
	"github.com/FranksOps/serprank/internal/storage/csvbackend"
)

// settings is the merged configuration: flags over SERPRANK_* env over
// serprank.yaml over defaults.
type settings struct {
	APIKey      string        `mapstructure:"api_key"`
	Engine      string        `mapstructure:"engine"`
	SerpAPIURL  string        `mapstructure:"serpapi_url"`
	GoogleURL   string        `mapstructure:"google_url"`
	Domain      string        `mapstructure:"domain"`
	Location    string        `mapstructure:"location"`
	Language    string        `mapstructure:"language"`
	Interval    time.Duration `mapstructure:"interval"`
	Jitter      float64       `mapstructure:"jitter"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Fingerprint string        `mapstructure:"fingerprint"`
	ProxyFile   string        `mapstructure:"proxy_file"`
	UserAgents  string        `mapstructure:"user_agents"`
	Match       string        `mapstructure:"match"`
	MetricsPort int           `mapstructure:"metrics_port"`
	Output      string        `mapstructure:"output"`
	Listen      string        `mapstructure:"listen"`
	SecretsDir  string        `mapstructure:"secrets_dir"`
	Debug       bool          `mapstructure:"debug"`
	LogFormat   string        `mapstructure:"log_format"`
}

// pacing converts the configured interval to the pipeline's convention,
// where zero means the default and negative disables pacing.
func (s settings) pacing() time.Duration {
	if s.Interval <= 0 {
		return -1
	}
	return s.Interval
}

const (
	engineSerpAPI = "serpapi"
	engineScrape  = "scrape"
)

// app carries per-invocation state shared by the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer

	logger  *slog.Logger
	secrets map[string]string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine", engineSerpAPI)
	v.SetDefault("language", input.DefaultLanguage)
	v.SetDefault("interval", time.Second)
	v.SetDefault("jitter", 0.0)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("match", "substring")
	v.SetDefault("output", csvbackend.FileName)
	v.SetDefault("listen", ":8080")
	v.SetDefault("secrets_dir", secrets.DefaultDir)
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_port", 0)
	v.SetDefault("debug", false)
	for _, key := range []string{
		"api_key", "serpapi_url", "google_url", "domain", "location",
		"fingerprint", "proxy_file", "user_agents",
	} {
		v.SetDefault(key, "")
	}
}

// initConfig reads the config file, if any, and wires env lookups.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("serprank")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "serprank"))
		}
	}

	a.v.SetEnvPrefix("SERPRANK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || a.cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) settings() (settings, error) {
	var s settings
	if err := a.v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode config: %w", err)
	}
	s.Engine = strings.ToLower(strings.TrimSpace(s.Engine))
	if s.Engine != engineSerpAPI && s.Engine != engineScrape {
		return s, fmt.Errorf("unknown engine %q (want %s or %s)", s.Engine, engineSerpAPI, engineScrape)
	}
	if s.APIKey == "" {
		s.APIKey = a.secrets[secrets.SerpAPIKey]
	}
	return s, nil
}

// newLogger builds the process logger on w.
func newLogger(w io.Writer, debug bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "serprank",
		Short: "Check where a domain ranks in Google for a list of keywords",
		Long: `serprank looks up each keyword once through a search results provider,
finds the first organic result linking to the target domain and reports its
position, "Not in top 100", or the error for that keyword.

Configuration is read from flags, SERPRANK_* environment variables (a .env
file is loaded first), serprank.yaml and the .secrets directory, in that order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			a.logger = newLogger(a.stderr, a.v.GetBool("debug"), a.v.GetString("log_format"))
			slog.SetDefault(a.logger)

			s, err := secrets.Load(a.v.GetString("secrets_dir"), a.logger)
			if err != nil {
				return err
			}
			a.secrets = s
			if len(s) > 0 {
				a.logger.Debug("loaded secrets", "count", len(s))
			}
			if used := a.v.ConfigFileUsed(); used != "" {
				a.logger.Debug("using config file", "path", used)
			}
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./serprank.yaml or ~/.config/serprank/serprank.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("api-key", "", "SerpApi key (or SERPRANK_API_KEY, or .secrets/serpapi-api-key)")
	pf.String("engine", engineSerpAPI, "results provider: serpapi or scrape")
	pf.Duration("interval", time.Second, "minimum time between lookups; 0 disables pacing")
	pf.Float64("jitter", 0, "random extra delay as a fraction of the interval (0-1)")
	pf.Duration("timeout", 30*time.Second, "per-request timeout")
	pf.String("fingerprint", "", "TLS fingerprint: go, chrome, firefox, safari or random")
	pf.String("proxy-file", "", "file of proxy URLs, one per line (scrape engine)")
	pf.String("user-agents", "", "file of User-Agent strings, one per line (scrape engine)")
	pf.String("match", "substring", "domain match: substring or host")
	pf.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")

	for key, flag := range map[string]string{
		"debug": "debug", "log_format": "log-format", "api_key": "api-key",
		"engine": "engine", "interval": "interval", "jitter": "jitter",
		"timeout": "timeout", "fingerprint": "fingerprint", "proxy_file": "proxy-file",
		"user_agents": "user-agents", "match": "match", "metrics_port": "metrics-port",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newCheckCmd(a),
		newLocationsCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newApp(stdout, stderr io.Writer) *app {
	v := viper.New()
	setDefaults(v)
	return &app{v: v, stdout: stdout, stderr: stderr, logger: slog.Default()}
}

// Execute runs the CLI with os.Args until completion or SIGINT/SIGTERM.
func Execute() error {
	// a missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(newApp(os.Stdout, os.Stderr)).ExecuteContext(ctx)
}
