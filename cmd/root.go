package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nimbus/internal/session"
)

// Exit codes for CLI commands.
// These follow common conventions for scripting and automation.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates a logged-in session is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth login flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags shared by all commands.
var (
	configPath string
	quiet      bool
)

// rootCmd represents the base command for the nimbus application.
var rootCmd = &cobra.Command{
	Use:   "nimbus",
	Short: "Manage your cloud session",
	Long: `nimbus manages the cloud session used by IDE features: logging in
via browser OAuth, keeping access tokens fresh, and logging out.

The refresh token is stored on disk so the session survives restarts;
access tokens are held in memory only.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. It is called by
// main.main(). SIGINT and SIGTERM cancel the command context, which in turn
// cancels any in-flight login.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "nimbus version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(getExitCode(err))
	}
}

// authRequiredError marks commands that need a logged-in session.
type authRequiredError struct{}

func (e *authRequiredError) Error() string {
	return "not logged in; run 'nimbus login' first"
}

// authFailedError marks a login attempt that did not end in a session.
type authFailedError struct {
	message string
}

func (e *authFailedError) Error() string {
	return e.message
}

// getExitCode determines the exit code based on the error type.
func getExitCode(err error) int {
	var required *authRequiredError
	if errors.As(err, &required) || errors.Is(err, session.ErrLoggedOut) {
		return ExitCodeAuthRequired
	}

	var failed *authFailedError
	if errors.As(err, &failed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default ~/.config/nimbus)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
}
