package cli

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/grn-bogo/ziasync/internal/config"
	"github.com/grn-bogo/ziasync/internal/logger"
	"github.com/grn-bogo/ziasync/internal/zia"
)

// openSession loads configuration, fills in a missing password from an
// interactive prompt, and signs in. The caller must Close the client.
func openSession(ctx context.Context) (*zia.Client, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Password == "" {
		pwd, err := promptPassword(cfg.Username)
		if err != nil {
			return nil, nil, err
		}
		cfg.Password = pwd
	}

	client := zia.NewClient(zia.ClientConfig{
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Password: cfg.Password,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.HTTPTimeout,
		Budgets:  cfg.Budgets(),
		Logger:   logger.L().WithField("component", "zia"),
	})

	if err := client.SignIn(ctx); err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// promptPassword reads the password without echo. Fails when stdin is not a
// terminal; non-interactive runs must supply ZIA_PASSWORD.
func promptPassword(username string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password configured and stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	pwd, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pwd), nil
}
