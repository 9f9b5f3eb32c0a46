package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the stored refresh token",
	Long: `End the cloud session and remove the persisted refresh token.

After logout, a new 'nimbus login' is required before any command that needs
a session.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	m, _, err := buildManager("")
	if err != nil {
		return err
	}

	restored, err := m.Restore()
	if err != nil {
		return err
	}
	if restored == nil {
		if !quiet {
			fmt.Println("Not logged in.")
		}
		return nil
	}

	if restored.LogOut() == nil {
		return fmt.Errorf("logout did not complete")
	}

	if !quiet {
		fmt.Println("Logged out.")
	}
	return nil
}
