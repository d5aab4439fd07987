package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newAPIKeyCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage trigger API keys",
	}

	var description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a key; it is shown once",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.app.apiKeyService()
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to open api key store", err)
			}
			_, token, err := svc.CreateAPIKey(cmd.Context(), description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "what the key is used for")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "delete ID",
			Short: "Revoke a key",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid key id", err)
				}
				svc, err := opts.app.apiKeyService()
				if err != nil {
					return WrapExitError(ExitCommandError, "unable to open api key store", err)
				}
				if err := svc.DeleteAPIKey(cmd.Context(), id); err != nil {
					return WrapExitError(ExitCommandError, "unable to delete key "+args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "api key %d deleted\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List keys",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := opts.app.apiKeyService()
				if err != nil {
					return WrapExitError(ExitCommandError, "unable to open api key store", err)
				}
				keys, err := svc.ListAPIKeys(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDESCRIPTION\tCREATED")
				for _, k := range keys {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", k.ID, k.Description, k.CreatedOn.Local().Format(time.DateTime))
				}
				return tw.Flush()
			},
		},
	)
	return cmd
}
