package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configured MythTV backend is reachable and compatible",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, ctx.newLogger(os.Stderr))
			if err != nil {
				return err
			}
			defer a.close()

			addr := a.client.Addr()
			if err := a.cache.CheckBackend(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), a.loc.Sprintf(i18n.MsgBackendUnreachable, addr))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.loc.Sprintf(i18n.MsgBackendOK, addr))
			return nil
		},
	}
}
