package cmd

import (
	"fmt"
	"os"

	"nimbus/internal/api"
	"nimbus/internal/config"
	"nimbus/internal/session"
	"nimbus/internal/tokenstore"
	"nimbus/pkg/cloud"
	"nimbus/pkg/logging"
)

// terminalNotificationHandler routes session notifications to the terminal.
type terminalNotificationHandler struct{}

func (terminalNotificationHandler) Notify(level api.NotificationLevel, title, message string) {
	switch level {
	case api.NotificationError:
		fmt.Fprintf(os.Stderr, "Error: %s: %s\n", title, message)
	case api.NotificationWarning:
		fmt.Fprintf(os.Stderr, "Warning: %s: %s\n", title, message)
	default:
		if !quiet {
			fmt.Printf("%s: %s\n", title, message)
		}
	}
}

// buildManager loads the configuration and assembles a session manager wired
// to the on-disk token store. frontendOverride, when non-empty, replaces the
// configured frontend URL.
func buildManager(frontendOverride string) (*session.Manager, config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.GetDefaultConfigPath()
		if err != nil {
			return nil, config.Config{}, err
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, config.Config{}, err
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), os.Stderr)
	api.RegisterNotificationHandler(terminalNotificationHandler{})

	store, err := tokenstore.NewStore(tokenstore.Config{StorageDir: cfg.TokenStorageDir})
	if err != nil {
		return nil, cfg, err
	}

	frontendURL := cfg.FrontendURL
	if frontendOverride != "" {
		frontendURL = frontendOverride
	}

	m := session.NewManager(session.Settings{
		FrontendURL:                    frontendURL,
		CallbackPort:                   cfg.CallbackPort,
		AuthorizationExpirationTimeout: cfg.AuthorizationTimeout(),
		LicenseAgreementCallback:       cfg.LicenseAgreementCallback,
	},
		session.WithTokenPersistence(store),
		session.WithTokenWatcherFactory(func() session.TokenWatcher {
			return tokenstore.NewWatcher(store, 0)
		}),
	)
	return m, cfg, nil
}

// displayName picks the best human-readable identity from user info.
func displayName(info cloud.UserInfo) string {
	if info.Name != "" {
		return info.Name
	}
	if info.Email != "" {
		return info.Email
	}
	return info.ID
}
