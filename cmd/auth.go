package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/shared"
)

// Login signs in and persists the session for later commands.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.client(); err != nil {
		return err
	}

	username := strings.TrimSpace(cmd.String("username"))
	password, err := r.password(cmd.String("password"))
	if err != nil {
		return err
	}

	user, err := r.accounts.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.logger.Info("logged in", "username", user.Username)
	r.writePlain("✓ Logged in as %s\n", user.Username)
	return nil
}

// Register creates an account and optionally signs in with it.
func (r *Runner) Register(ctx context.Context, cmd *cli.Command) error {
	if err := r.client(); err != nil {
		return err
	}

	password, err := r.password(cmd.String("password"))
	if err != nil {
		return err
	}

	req := services.RegisterRequest{
		Username: strings.TrimSpace(cmd.String("username")),
		Password: password,
		Email:    strings.TrimSpace(cmd.String("email")),
		Birthday: strings.TrimSpace(cmd.String("birthday")),
	}

	user, err := r.accounts.Register(ctx, req)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	r.writePlain("✓ Account %s created\n", user.Username)

	if !cmd.Bool("login") {
		r.writePlain("Run 'myflix auth login -u %s' to sign in\n", user.Username)
		return nil
	}

	if _, err := r.accounts.Login(ctx, req.Username, req.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	r.writePlain("✓ Logged in as %s\n", user.Username)
	return nil
}

// Logout ends the current session. Logging out without a session is not an error.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := r.client(); err != nil {
		return err
	}

	username := r.accounts.Current().Username()
	if err := r.accounts.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	if username == "" {
		r.writePlain("Not logged in\n")
		return nil
	}
	r.writePlain("✓ Logged out %s\n", username)
	return nil
}

// WhoAmI prints the signed in user from the persisted session without contacting the server.
func (r *Runner) WhoAmI(ctx context.Context, cmd *cli.Command) error {
	if err := r.client(); err != nil {
		return err
	}

	snap := r.accounts.Current()
	if !snap.Authenticated() {
		return fmt.Errorf("whoami: %w", shared.ErrUnauthenticated)
	}

	if cmd.Bool("json") {
		return r.writeJSON(snap.User, true)
	}
	return r.writePlain("%s\n", snap.Username())
}

// password returns flag, or reads one line from the runner's input when flag is empty.
func (r *Runner) password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	r.writePlain("Password: ")
	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}
	return password, nil
}
