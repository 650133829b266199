package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/logging"
)

// setupLogging configures logging from the resolved configuration, the
// environment, and the --debug flag, in ascending precedence. It stores a
// trace-carrying context on cmd so every execute function logs under one
// trace ID.
func setupLogging(cmd *cobra.Command, state *rootState) logging.LogPathResult {
	loggingCfg := state.cfg.Logging

	if state.debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.File = ""
	}

	if envLevel, ok := state.lookupEnv(logging.EnvLogLevel); ok && envLevel != "" && !state.debug {
		loggingCfg.Level = envLevel
	}
	if envFormat, ok := state.lookupEnv(logging.EnvLogFormat); ok && envFormat != "" && !state.debug {
		loggingCfg.Format = envFormat
	}

	if loggingCfg.File != "" {
		if err := state.cfg.EnsureLogDir(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	result := logging.NewLoggerWithPath(loggingCfg.ToLoggingConfig())
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Info().Ctx(ctx).
		Str("command", cmd.Name()).
		Str("profile", state.profileName()).
		Msg("command started")

	return result
}

// cleanupLogging closes the log file handle, if one was opened.
func cleanupLogging(logResult *logging.LogPathResult) error {
	if logResult == nil {
		return nil
	}
	return logResult.Close()
}
