// Command sessionctl manages a file-held authentication session from the
// shell: login stores a bearer token and profile, status reports the
// derived state, logout clears everything. Several invocations (or several
// running tools) sharing the same state file behave like browser tabs
// sharing one store.
//
// Usage:
//
//	sessionctl login --token <jwt> [--name <display name>]
//	sessionctl status
//	sessionctl logout
//
// The state file defaults to <user config dir>/sessionctl/state.json and
// can be overridden with --state.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	authstate "github.com/variel/authstate"
	"github.com/variel/authstate/store/file"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sessionctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var statePath string

	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Manage a locally held authentication session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&statePath, "state", "", "session state file (default: user config dir)")

	root.AddCommand(newLoginCmd(&statePath))
	root.AddCommand(newStatusCmd(&statePath))
	root.AddCommand(newLogoutCmd(&statePath))

	return root
}

func newLoginCmd(statePath *string) *cobra.Command {
	var tokenFlag string
	var nameFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token and profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tokenFlag == "" {
				return fmt.Errorf("--token is required")
			}

			manager, err := openManager(*statePath)
			if err != nil {
				return err
			}
			defer manager.Close()

			ctx := cmd.Context()
			if err := manager.Hydrate(ctx); err != nil {
				return err
			}

			profile := authstate.Profile{}
			if nameFlag != "" {
				profile["name"] = nameFlag
			}
			if err := manager.Login(ctx, tokenFlag, profile); err != nil {
				return err
			}

			if !manager.IsAuthenticated() {
				fmt.Println("token stored, but it is already expired")
				return nil
			}
			fmt.Printf("logged in as %s\n", manager.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenFlag, "token", "", "bearer token (required)")
	cmd.Flags().StringVar(&nameFlag, "name", "", "display name to store in the profile")
	return cmd
}

func newStatusCmd(statePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := openManager(*statePath)
			if err != nil {
				return err
			}
			defer manager.Close()

			if err := manager.Hydrate(cmd.Context()); err != nil {
				return err
			}

			snap := manager.Snapshot()
			if !snap.IsAuthenticated {
				fmt.Println("not logged in")
				return nil
			}

			fmt.Printf("logged in as %s\n", snap.DisplayName)
			if exp, ok := snap.Claims.ExpiresAtTime(); ok {
				fmt.Printf("session expires %s (%s from now)\n",
					exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
			}
			return nil
		},
	}
}

func newLogoutCmd(statePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := openManager(*statePath)
			if err != nil {
				return err
			}
			defer manager.Close()

			ctx := cmd.Context()
			if err := manager.Hydrate(ctx); err != nil {
				return err
			}
			if err := manager.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func openManager(statePath string) (*authstate.Manager, error) {
	if statePath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		statePath = filepath.Join(configDir, "sessionctl", "state.json")
	}
	if err := os.MkdirAll(filepath.Dir(statePath), 0o700); err != nil {
		return nil, err
	}

	st, err := file.New(statePath)
	if err != nil {
		return nil, err
	}

	// One-shot invocations have no use for the change feed; skip the
	// watcher so the process exits promptly.
	return authstate.New().
		WithStore(st).
		WithWatcher(nil).
		Build()
}
