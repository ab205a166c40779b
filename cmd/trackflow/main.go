// =============================================================================
// TrackFlow 主入口
// =============================================================================
// 实验跟踪 CLI,包含绑定、状态查询、历史查询与 rollout 查看器
//
// 使用方法:
//
//	trackflow bind --project demo         # 绑定(创建或恢复)运行
//	trackflow status                      # 查看当前目录的运行标识符
//	trackflow reset                       # 删除运行标识符记录
//	trackflow history                     # 查看绑定历史
//	trackflow view rollouts.jsonl         # 启动 rollout 查看器
//	trackflow version                     # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/trackflow/config"
	"github.com/BaSui01/trackflow/history"
	"github.com/BaSui01/trackflow/internal/telemetry"
	"github.com/BaSui01/trackflow/quick"
	"github.com/BaSui01/trackflow/runid"
	"github.com/BaSui01/trackflow/viewer"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "bind":
		runBind(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "reset":
		runReset(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "view":
		runView(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🔗 bind 命令
// =============================================================================

func runBind(args []string) {
	fs := flag.NewFlagSet("bind", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dir := fs.String("dir", ".", "Working directory holding the run id record")
	project := fs.String("project", "", "Tracking project (overrides config)")
	provider := fs.String("provider", "", "Tracking provider: wandb, mlflow, offline")
	expectResume := fs.Bool("expect-resume", false, "Warn if no run id record exists")
	noPersist := fs.Bool("no-persist", false, "Do not read or write the run id record")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdownTelemetry(otelProviders, logger)

	if *provider != "" {
		cfg.Provider = *provider
	}
	if *project != "" {
		cfg.Run.Project = *project
	}

	opts := []quick.Option{
		quick.WithConfig(cfg),
		quick.WithDir(*dir),
		quick.WithLogger(logger),
	}
	if *expectResume {
		opts = append(opts, quick.WithExpectResume())
	}
	if *noPersist {
		opts = append(opts, quick.WithoutPersistence())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	run, err := quick.Open(ctx, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bind failed: %v\n", err)
		os.Exit(1)
	}
	defer run.Finish(context.Background())

	fmt.Printf("Run:     %s\n", run.ID)
	fmt.Printf("Outcome: %s\n", run.Outcome)
	if run.URL != "" {
		fmt.Printf("URL:     %s\n", run.URL)
	}
	if run.PersistFailed {
		fmt.Println("Warning: run id record could not be written; the next bind starts a new run")
	}
}

// =============================================================================
// 📍 status / reset 命令
// =============================================================================

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dir := fs.String("dir", ".", "Working directory holding the run id record")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	store := openStore(cfg)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, found, err := store.Read(ctx, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read run id record: %v\n", err)
		os.Exit(1)
	}
	if !found {
		fmt.Println("No run id record; the next bind creates a new run")
		return
	}
	fmt.Printf("Run id record: %s\n", id)
	fmt.Println("The next bind in this directory resumes this run")
}

func runReset(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dir := fs.String("dir", ".", "Working directory holding the run id record")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	store := openStore(cfg)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Delete(ctx, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to delete run id record: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Run id record removed; the next bind creates a new run")
}

// =============================================================================
// 📜 history 命令
// =============================================================================

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dir := fs.String("dir", "", "Only show binds for this working directory")
	limit := fs.Int("limit", 20, "Maximum number of records")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	journal, err := history.Open(cfg.Journal.Path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open bind journal: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var events []history.BindEvent
	if *dir != "" {
		events, err = journal.ForDirectory(ctx, *dir, *limit)
	} else {
		events, err = journal.Recent(ctx, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query bind journal: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Println("No bind history")
		return
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-11s  %s  %s/%s  %s",
			e.CreatedAt.Format(time.RFC3339), e.Outcome, e.RunID, e.Provider, e.Project, e.Directory)
		if e.PersistFailed {
			line += "  [persist failed]"
		}
		fmt.Println(line)
	}
}

// =============================================================================
// 👀 view 命令
// =============================================================================

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: trackflow view [options] <rollouts.jsonl>")
		os.Exit(1)
	}
	rolloutPath := fs.Arg(0)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdownTelemetry(otelProviders, logger)

	listenAddr := cfg.Viewer.Addr
	if *addr != "" {
		listenAddr = *addr
	}

	v := viewer.New(viewer.Config{
		RolloutPath:  rolloutPath,
		Addr:         listenAddr,
		PollInterval: cfg.Viewer.PollInterval,
	}, logger)

	if err := v.Start(); err != nil {
		logger.Fatal("Failed to start viewer", zap.Error(err))
	}

	fmt.Printf("Viewing %s at http://%s\n", rolloutPath, v.Addr())
	v.WaitForShutdown()

	logger.Info("viewer stopped")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("TrackFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`TrackFlow - Experiment Tracking CLI

Usage:
  trackflow <command> [options]

Commands:
  bind      Create or resume a tracked run for a working directory
  status    Show the run id record of a working directory
  reset     Delete the run id record of a working directory
  history   Show past bind events from the local journal
  view      Serve a rollouts JSONL file over HTTP + websocket
  version   Show version information
  help      Show this help message

Options for 'bind':
  --config <path>     Path to configuration file (YAML)
  --dir <path>        Working directory holding the run id record
  --project <name>    Tracking project (overrides config)
  --provider <name>   Tracking provider: wandb, mlflow, offline
  --expect-resume     Warn if no run id record exists
  --no-persist        Do not read or write the run id record

Examples:
  trackflow bind --provider offline --project demo
  trackflow bind --config /etc/trackflow/config.yaml --expect-resume
  trackflow status --dir /data/experiments/exp1
  trackflow reset --dir /data/experiments/exp1
  trackflow history --limit 50
  trackflow view --addr 127.0.0.1:8192 rollouts.jsonl
  trackflow version`)
}

// =============================================================================
// 🔧 初始化辅助
// =============================================================================

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func openStore(cfg *config.Config) runid.Store {
	store, err := runid.NewStore(cfg.Store.ToStoreConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create run id store: %v\n", err)
		os.Exit(1)
	}
	return store
}

func shutdownTelemetry(providers *telemetry.Providers, logger *zap.Logger) {
	if providers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	// 构建配置
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var buildOpts []zap.Option
	if cfg.EnableCaller {
		buildOpts = append(buildOpts, zap.AddCaller())
	}
	buildOpts = append(buildOpts, zap.AddStacktrace(zapcore.ErrorLevel))

	// 构建 logger
	logger, err := zapConfig.Build(buildOpts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
