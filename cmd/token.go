package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nimbus/internal/session"
)

// tokenCmd represents the token command.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a valid access token",
	Long: `Print a currently valid access token for the cloud service.

The token is refreshed if necessary. Intended for scripting; combine with
--quiet to get only the token on stdout.

Exit codes: ` + fmt.Sprint(ExitCodeAuthRequired) + ` when not logged in, ` + fmt.Sprint(ExitCodeError) + ` when the cloud is unreachable.`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	m, _, err := buildManager("")
	if err != nil {
		return err
	}

	restored, err := m.Restore()
	if err != nil {
		return err
	}
	if restored == nil {
		return &authRequiredError{}
	}

	token, err := restored.AcquireAccessToken(cmd.Context())
	switch {
	case errors.Is(err, session.ErrLoggedOut):
		return &authRequiredError{}
	case errors.Is(err, session.ErrOffline):
		return fmt.Errorf("cloud service unreachable, try again later")
	case err != nil:
		return err
	}

	fmt.Println(token)
	return nil
}
