package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "tcoracle"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."
	dotEnvFileName   = ".env"

	maxLevelFlagName       = "max-level"
	outputFlagName         = "output"
	parallelFlagName       = "parallel"
	noCacheFlagName        = "no-cache"
	metricsFileFlagName    = "metrics-file"
	manifestFlagName       = "manifest"
	checkerTimeoutFlagName = "checker-timeout"
	formatFlagName         = "format"
	verboseFlagName        = "verbose"

	maxLevelKey          = "eval.max_level"
	parallelKey          = "run.parallel"
	cacheDisabledKey     = "cache.disabled"
	pythonKey            = "sandbox.python"
	sandboxTimeoutKey    = "sandbox.timeout"
	coverageRunKey       = "coverage.run_timeout"
	coverageReportKey    = "coverage.report_timeout"
	coverageThresholdKey = "coverage.threshold"
	maxCasesKey          = "synthesis.max_cases"
	seedKey              = "synthesis.seed"
	maxMutantsKey        = "mutation.max_mutants"
	perCategoryKey       = "mutation.per_category"
	checkersKey          = "checkers"
	checkerTimeoutKey    = "checker.timeout"
	classifiersKey       = "verdict.classifiers"
	metricsFileKey       = "metrics.file"

	defaultMaxLevel          = 3
	defaultParallel          = 1
	defaultCacheDisabled     = false
	defaultPython            = "python3"
	defaultSandboxTimeout    = 30
	defaultCoverageRun       = 30
	defaultCoverageReport    = 10
	defaultCoverageThreshold = 95.0
	defaultMaxCases          = 10
	defaultSeed              = 0
	defaultMaxMutants        = 15
	defaultPerCategory       = 10
	defaultCheckerTimeout    = 60

	cacheDir  = ".tcoracle-cache"
	envPrefix = "TCORACLE"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".tcoracle.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

// defaultCheckers are the analyzers compared by default, each run as
// "<argv...> <file>".
var defaultCheckers = map[string][]string{
	"mypy":    {"mypy"},
	"pyrefly": {"pyrefly", "check"},
	"zuban":   {"zuban", "check"},
	"ty":      {"ty", "check"},
}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(maxLevelKey, defaultMaxLevel)
	viper.SetDefault(parallelKey, defaultParallel)
	viper.SetDefault(cacheDisabledKey, defaultCacheDisabled)
	viper.SetDefault(pythonKey, defaultPython)
	viper.SetDefault(sandboxTimeoutKey, defaultSandboxTimeout)
	viper.SetDefault(coverageRunKey, defaultCoverageRun)
	viper.SetDefault(coverageReportKey, defaultCoverageReport)
	viper.SetDefault(coverageThresholdKey, defaultCoverageThreshold)
	viper.SetDefault(maxCasesKey, defaultMaxCases)
	viper.SetDefault(seedKey, defaultSeed)
	viper.SetDefault(maxMutantsKey, defaultMaxMutants)
	viper.SetDefault(perCategoryKey, defaultPerCategory)
	viper.SetDefault(checkersKey, defaultCheckers)
	viper.SetDefault(checkerTimeoutKey, defaultCheckerTimeout)
	viper.SetDefault(classifiersKey, map[string]string{})
	viper.SetDefault(metricsFileKey, "")

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}

		slog.Warn("failed to read config", "file", configFileName, "error", err)
	}
}

// loadDotEnv exports the variables of a .env file in the working directory,
// without overriding variables already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func seconds(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Second
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at the configured level; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
