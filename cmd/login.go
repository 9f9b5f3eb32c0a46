package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"nimbus/internal/session"
)

var loginFrontendURL string

// loginCmd represents the login command.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the cloud service",
	Long: `Log in to the cloud service using a browser OAuth flow.

A browser window opens for authorization; the command waits until the flow
completes, fails, or is cancelled with Ctrl+C. When the cloud installation
requires a license agreement, the command also waits for its acceptance.

Examples:
  nimbus login                              # Login to the configured frontend
  nimbus login --frontend-url <url>         # Login to a self-hosted frontend`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginFrontendURL, "frontend-url", "", "Self-hosted cloud frontend URL")
}

func runLogin(cmd *cobra.Command, args []string) error {
	m, _, err := buildManager(loginFrontendURL)
	if err != nil {
		return err
	}

	// A stored refresh token may already carry a live session.
	if restored, err := m.Restore(); err == nil && restored != nil {
		info, err := restored.CloudClient().GetUserInfo(cmd.Context())
		if err == nil {
			if !quiet {
				fmt.Printf("Already logged in as %s.\n", displayName(*info))
			}
			return nil
		}
		if errors.Is(err, session.ErrOffline) {
			return fmt.Errorf("already logged in, but the cloud service is unreachable: %w", err)
		}
		// The stored token was rejected; the session logged itself out and
		// a fresh login can proceed.
	}

	notAuthorized, ok := m.Current().(*session.NotAuthorized)
	if !ok {
		return &authFailedError{message: "another login is already in progress"}
	}

	done := make(chan session.UserState, 1)
	m.States().OnChange(func(previous, current session.UserState) {
		switch current.(type) {
		case *session.Authorized, *session.NotAuthorized:
			select {
			case done <- current:
			default:
			}
		}
	})

	authorizing := notAuthorized.Authorize(loginFrontendURL)
	if authorizing == nil {
		return &authFailedError{message: "another login is already in progress"}
	}

	var s *spinner.Spinner
	if !quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for browser authorization..."
		s.Start()
	}

	var terminal session.UserState
	select {
	case terminal = <-done:
	case <-cmd.Context().Done():
		authorizing.CancelAuthorization()
		terminal = <-done
	}
	if s != nil {
		s.Stop()
	}

	if cmd.Context().Err() != nil {
		return &authFailedError{message: "login cancelled"}
	}

	authorized, ok := terminal.(*session.Authorized)
	if !ok {
		return &authFailedError{message: "authorization did not complete"}
	}

	if !quiet {
		fmt.Printf("Logged in as %s.\n", displayName(authorized.UserInfo()))
	}
	return nil
}
