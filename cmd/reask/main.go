// =============================================================================
// Reask 主入口
// =============================================================================
// 命令行工具：对字面模型输出执行 schema 校验与收尾替换
//
// 使用方法:
//
//	reask validate --schema person.json --input output.txt
//	reask validate --schema person.json --config config.yaml < output.txt
//	reask version
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/BaSui01/reask"
	"github.com/BaSui01/reask/config"
	"github.com/BaSui01/reask/history"
	"github.com/BaSui01/reask/internal/telemetry"
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
	case "validate":
		runValidate(os.Args[2:])
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
// ✅ validate 命令
// =============================================================================

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	schemaPath := fs.String("schema", "", "Path to schema spec file (JSON)")
	inputPath := fs.String("input", "-", "Path to raw model output, '-' for stdin")
	configPath := fs.String("config", "", "Path to config file (YAML)")
	fs.Parse(args)

	if *schemaPath == "" {
		fmt.Fprintln(os.Stderr, "validate: --schema is required")
		os.Exit(1)
	}

	// 加载配置
	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting reask validate",
		zap.String("version", Version),
		zap.String("schema", *schemaPath),
	)

	// Initialize OpenTelemetry
	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelProviders.Shutdown(ctx)
	}()

	// 加载 schema 规格
	s, err := loadSchemaSpec(*schemaPath)
	if err != nil {
		logger.Fatal("Failed to load schema spec", zap.Error(err))
	}

	// 读取原始输出
	raw, err := readInput(*inputPath)
	if err != nil {
		logger.Fatal("Failed to read input", zap.Error(err))
	}

	// 回放校验
	g := reask.New(s,
		reask.WithConfig(cfg.Guard),
		reask.WithLogger(logger),
	)
	out, err := g.ValidateString(context.Background(), raw)
	if err != nil {
		logger.Fatal("Validation run failed", zap.Error(err))
	}
	hist := g.History()

	// 可选的历史持久化
	if db, dbErr := openDatabase(cfg.Database, logger); dbErr != nil {
		logger.Debug("Database not available, history not persisted", zap.Error(dbErr))
	} else if store, storeErr := history.NewStore(db, logger); storeErr != nil {
		logger.Warn("History store unavailable", zap.Error(storeErr))
	} else if saveErr := store.Save(context.Background(), hist); saveErr != nil {
		logger.Warn("Failed to persist history", zap.Error(saveErr))
	}

	// 输出最终结构
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", out))
	}
	fmt.Println(string(encoded))

	if !hist.Resolved() {
		logger.Warn("output not fully resolved, result is best-effort")
		os.Exit(2)
	}
}

// readInput 读取文件或标准输入
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("Reask %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Reask - schema-guarded output validation

Usage:
  reask <command> [options]

Commands:
  validate  Validate a literal model output against a schema spec
  version   Show version information
  help      Show this help message

Options for 'validate':
  --schema <path>   Path to schema spec file (JSON, required)
  --input <path>    Path to the raw output, '-' for stdin (default '-')
  --config <path>   Path to configuration file (YAML)

Exit codes for 'validate':
  0  output fully resolved
  2  output finalized best-effort with remaining failures

Examples:
  reask validate --schema person.json --input output.txt
  cat output.txt | reask validate --schema person.json
  reask version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

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

	// 构建配置
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	if cfg.Format != "console" {
		zapConfig.Encoding = "json"
	}

	// 构建 logger
	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}

// openDatabase 根据配置打开数据库连接
func openDatabase(dbCfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	if dbCfg.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite)", dbCfg.Driver)
	}

	db, err := gorm.Open(sqlite.Open(dbCfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	logger.Info("Database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
