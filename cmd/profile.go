package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/formatter"
	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/shared"
)

// ProfileShow prints the signed in user's profile as stored in the session.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.client(); err != nil {
		return err
	}

	snap, err := r.gate.Require("profile")
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snap.User, true)
	}
	return r.writePlain("%s", formatter.Profile(snap.User))
}

// ProfileUpdate sends the given fields to the server and stores the user it returns.
func (r *Runner) ProfileUpdate(ctx context.Context, cmd *cli.Command) error {
	update := services.ProfileUpdate{
		Username: cmd.String("username"),
		Email:    cmd.String("email"),
		Birthday: cmd.String("birthday"),
		Password: cmd.String("password"),
	}
	if update == (services.ProfileUpdate{}) {
		return fmt.Errorf("%w: nothing to update", shared.ErrMissingArgument)
	}

	if err := r.client(); err != nil {
		return err
	}

	user, err := r.accounts.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}

	r.writePlain("✓ Profile updated\n")
	return r.writePlain("%s", formatter.Profile(user))
}

// ProfileDelete deregisters the account and ends the session. Requires --yes.
func (r *Runner) ProfileDelete(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to delete your account", shared.ErrMissingArgument)
	}

	if err := r.client(); err != nil {
		return err
	}

	username := r.accounts.Current().Username()
	if err := r.accounts.DeleteAccount(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Account %s deleted\n", username)
	return nil
}
