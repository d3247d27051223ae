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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Zhangboyu-Ian/Ai-classroom/internal/handler"
	appI18n "github.com/Zhangboyu-Ian/Ai-classroom/internal/i18n"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/llm"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/model"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/store"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/video"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "classroom",
		Short: "AI-assisted classroom discussion server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the classroom HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "classroom.db", "SQLite database path")
	f.String("llm-url", "https://api.deepseek.com/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the AI service")
	f.String("llm-model", "deepseek-chat", "AI model name")
	f.String("video-url", video.DefaultBaseURL, "Talking-head video API base URL")
	f.String("video-key", "", "API key for the video service (empty disables video)")
	f.String("video-image-url", "https://i.imgur.com/GODJ74i.png", "Default presenter image URL")
	f.String("video-voice", "en-US-JennyNeural", "Default TTS voice for videos")
	f.StringP("lang", "l", "en", "Default UI language (en, zh)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export classroom answers",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "classroom.db", "SQLite database path")
	f.String("class", "", "Class code to export (required)")
	f.String("format", "csv", "Output format (csv, json)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("class")

	return cmd
}

func setupLogging(v *viper.Viper) {
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

	v.SetEnvPrefix("CLASSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("classroom")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/classroom")
	v.AddConfigPath("/etc/classroom")
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
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("AI health check: %w", err)
	}
	slog.Info("AI endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	videoClient := video.New(v.GetString("video-url"), v.GetString("video-key"))
	if v.GetString("video-key") == "" {
		slog.Warn("no video API key configured, video generation will fail upstream")
	}

	cfg := model.ServerConfig{
		Addr:          v.GetString("addr"),
		Lang:          lang,
		VideoImageURL: v.GetString("video-image-url"),
		VideoVoiceID:  v.GetString("video-voice"),
	}

	h := handler.New(db, llmClient, videoClient, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"video_url", v.GetString("video-url"),
		"lang", lang,
	)
	return http.ListenAndServe(cfg.Addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	classCode := v.GetString("class")
	if db.GetClassroomInfo(classCode) == nil {
		return fmt.Errorf("classroom %q not found", classCode)
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

	switch strings.ToLower(v.GetString("format")) {
	case "json":
		export := db.ExportClass(classCode)
		if export == nil {
			return fmt.Errorf("export classroom %q", classCode)
		}
		return writeJSON(w, export)
	case "csv":
		return db.ExportCSV(w, classCode)
	default:
		return fmt.Errorf("unknown format %q (want csv or json)", v.GetString("format"))
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
