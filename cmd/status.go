package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"nimbus/internal/session"
)

var statusLicenses bool

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	Long: `Show whether a cloud session exists and who it belongs to.

With --licenses, also list the license agreements of the logged-in user,
including any that still await acceptance.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusLicenses, "licenses", false, "Also list license agreements")
}

func runStatus(cmd *cobra.Command, args []string) error {
	m, cfg, err := buildManager("")
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)

	restored, err := m.Restore()
	if err != nil {
		return err
	}
	if restored == nil {
		t.AppendRow(table.Row{"State", "Not logged in"})
		t.AppendRow(table.Row{"Frontend", cfg.FrontendURL})
		t.Render()
		return nil
	}

	info, err := restored.CloudClient().GetUserInfo(cmd.Context())
	switch {
	case errors.Is(err, session.ErrLoggedOut):
		// The stored token was rejected; the session cleaned itself up.
		t.AppendRow(table.Row{"State", "Not logged in (stored session was rejected)"})
		t.AppendRow(table.Row{"Frontend", restored.FrontendURL()})
		t.Render()
		return nil
	case errors.Is(err, session.ErrOffline):
		t.AppendRow(table.Row{"State", "Logged in (cloud unreachable)"})
		t.AppendRow(table.Row{"Frontend", restored.FrontendURL()})
		t.Render()
		return nil
	case err != nil:
		return err
	}

	t.AppendRow(table.Row{"State", "Logged in"})
	t.AppendRow(table.Row{"User", displayName(*info)})
	if info.Email != "" {
		t.AppendRow(table.Row{"Email", info.Email})
	}
	t.AppendRow(table.Row{"Frontend", restored.FrontendURL()})
	t.Render()

	if !statusLicenses {
		return nil
	}

	licenses, err := restored.CloudClient().GetUserLicenses(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch licenses: %w", err)
	}

	lt := table.NewWriter()
	lt.SetOutputMirror(os.Stdout)
	lt.SetStyle(table.StyleRounded)
	lt.AppendHeader(table.Row{"License", "Status"})
	for _, license := range licenses {
		name := license.Name
		if name == "" {
			name = license.ID
		}
		status := "accepted"
		if license.Missing {
			status = "acceptance required"
		}
		lt.AppendRow(table.Row{name, status})
	}
	lt.Render()
	return nil
}
