package cli

import (
	"github.com/spf13/cobra"
)

func newDumpConfigCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dumpconfig",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := o.cfg.Marshal()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
