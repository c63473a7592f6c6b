package cli

import (
	"github.com/spf13/cobra"

	"github.com/kievzenit/bitsyc/internal/log"
)

func newBuildCmd(o *options) *cobra.Command {
	var (
		output string
		noOpt  bool
	)

	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Compile a (.bitsy) source file into a native executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				o.cfg.Build.Output = output
			}
			if noOpt {
				o.cfg.Build.Optimize = false
			}

			mod, err := o.compile(cmd, args[0])
			if err != nil {
				return err
			}

			m, err := o.lower(mod)
			if err != nil {
				return err
			}
			defer m.Dispose()

			if err := m.Compile(cmd.Context(), o.cfg.Build.Clang, o.cfg.Build.Output); err != nil {
				return &ExitError{Code: exitCompile, Err: err}
			}

			log.Info("Built executable", "file", args[0], "output", o.cfg.Build.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "a.out", "path of the produced executable")
	cmd.Flags().BoolVar(&noOpt, "no-opt", false, "skip optimization")
	return cmd
}
