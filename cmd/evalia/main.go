package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/evalia/evalia/internal/analytics"
	"github.com/evalia/evalia/internal/handler"
	appI18n "github.com/evalia/evalia/internal/i18n"
	"github.com/evalia/evalia/internal/llm"
	"github.com/evalia/evalia/internal/model"
	"github.com/evalia/evalia/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "evalia",
		Short: "Code evaluation platform powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), resetCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `evalia --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "evalia.db", "SQLite database path")
	f.String("ai-endpoint", "https://oi-server.onrender.com/v1", "OpenAI-compatible API base URL")
	f.String("ai-key", "", "API key for the completion endpoint")
	f.String("ai-customer-id", "", "Customer identifier header sent to the endpoint")
	f.String("ai-model", "openrouter/anthropic/claude-sonnet-4", "Completion model name")
	f.Float32("ai-temperature", 0.5, "Default sampling temperature")
	f.Int("ai-max-tokens", 4000, "Maximum completion tokens per request")
	f.Duration("ai-timeout", 5*time.Minute, "Per-request timeout for the completion endpoint")
	f.StringP("lang", "l", "fr", "Default content language (fr, en)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringSlice("teacher-codes", nil, "Teacher access codes to seed on first start (repeatable)")
	f.Bool("skip-ai-check", false, "Skip the completion endpoint health check on startup")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all stored data as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "evalia.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored record",
		RunE:  runReset,
	}
	f := cmd.Flags()
	f.String("db", "evalia.db", "SQLite database path")
	f.Bool("force", false, "Actually delete; without it the command refuses")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EVALIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("evalia")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/evalia")
	v.AddConfigPath("/etc/evalia")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedTeachers(db, v.GetStringSlice("teacher-codes")); err != nil {
		return fmt.Errorf("seed teachers: %w", err)
	}

	lang := model.Language(v.GetString("lang"))
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}
	if err := appI18n.Init(string(lang)); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	aiCfg := model.AIConfig{
		Endpoint:    v.GetString("ai-endpoint"),
		APIKey:      v.GetString("ai-key"),
		CustomerID:  v.GetString("ai-customer-id"),
		Model:       v.GetString("ai-model"),
		Temperature: float32(v.GetFloat64("ai-temperature")),
		MaxTokens:   v.GetInt("ai-max-tokens"),
		Timeout:     v.GetDuration("ai-timeout"),
	}
	llmClient := llm.New(aiCfg)
	if v.GetBool("skip-ai-check") {
		slog.Warn("skipping completion endpoint health check")
	} else {
		if err := llmClient.Ping(context.Background()); err != nil {
			return fmt.Errorf("completion endpoint health check: %w", err)
		}
		slog.Info("completion endpoint OK", "endpoint", aiCfg.Endpoint, "model", aiCfg.Model)
	}

	repos := store.NewRepositories(db)
	svc := analytics.New(repos)

	srvCfg := model.ServerConfig{
		Addr:            v.GetString("addr"),
		DefaultLanguage: lang,
		SecureCookies:   v.GetBool("secure-cookies"),
	}

	h := handler.New(db, repos, llmClient, svc, srvCfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(string(lang)))
	h.Routes(r)

	slog.Info("starting server",
		"addr", srvCfg.Addr,
		"model", aiCfg.Model,
		"endpoint", aiCfg.Endpoint,
		"lang", lang,
	)
	return http.ListenAndServe(srvCfg.Addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	repos := store.NewRepositories(db)
	export := repos.ExportAll()

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if !v.GetBool("force") {
		return fmt.Errorf("refusing to delete data without --force")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	repos := store.NewRepositories(db)
	if err := repos.ClearAll(); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	slog.Info("all collections cleared")
	return nil
}

// seedTeachers registers the configured access codes on first start. Codes
// are stored only as bcrypt hashes; an empty list on a fresh database leaves
// the dashboard unreachable until one is configured.
func seedTeachers(db *store.Store, codes []string) error {
	count, err := db.TeacherCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if len(codes) == 0 {
		slog.Warn("no teacher access codes configured, dashboard login disabled")
		return nil
	}

	for i, code := range codes {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash access code: %w", err)
		}
		if _, err := db.CreateTeacher(model.Teacher{
			Label:    fmt.Sprintf("Enseignant %d", i+1),
			CodeHash: string(hash),
			Active:   true,
		}); err != nil {
			return fmt.Errorf("create teacher: %w", err)
		}
	}
	slog.Info("seeded teacher accounts", "count", len(codes))
	return nil
}
