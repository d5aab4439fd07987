package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haatos/simple-build/internal/security"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newSecretCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the encrypted secret store",
		Long: `Manage secrets kept encrypted in the history database. The store needs
SIMPLEBUILD_SECRET_KEY (16, 24 or 32 characters); 'simplebuild secret keygen'
prints a suitable key. Environment variables always win over stored values.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set NAME",
			Short: "Store a secret; the value is read from the terminal or stdin",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := opts.app.secretService()
				if err != nil {
					return WrapExitError(ExitCommandError, "unable to open secret store", err)
				}
				value, err := readSecretValue(cmd, opts.stdin, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "unable to read secret value", err)
				}
				if err := svc.SetSecret(cmd.Context(), args[0], value); err != nil {
					return WrapExitError(ExitCommandError, "unable to store secret", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "secret %s stored\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Remove a stored secret",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := opts.app.secretService()
				if err != nil {
					return WrapExitError(ExitCommandError, "unable to open secret store", err)
				}
				if err := svc.DeleteSecret(cmd.Context(), args[0]); err != nil {
					return WrapExitError(ExitCommandError, "unable to delete secret "+args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "secret %s deleted\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored secret names",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := opts.app.secretService()
				if err != nil {
					return WrapExitError(ExitCommandError, "unable to open secret store", err)
				}
				names, err := svc.ListSecretNames(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "keygen",
			Short: "Print a new random SIMPLEBUILD_SECRET_KEY",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := security.GenerateRandomKey(32)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			},
		},
	)
	return cmd
}

func readSecretValue(cmd *cobra.Command, stdin io.Reader, name string) (string, error) {
	if stdin == nil {
		stdin = os.Stdin
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Value for %s: ", name)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return checkSecretValue(string(b))
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return checkSecretValue(strings.TrimRight(string(b), "\r\n"))
}

func checkSecretValue(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", errors.New("empty value")
	}
	return value, nil
}
