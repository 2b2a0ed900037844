package debug

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:     "symbols <module|address> [prefix]",
	Short:   "列出模块的符号",
	Aliases: []string{"syms"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSymbols,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args) > 2 {
			return errors.New("参数错误")
		}

		m, ok := CurrentSession.engine.FindModule(args[0])
		if !ok {
			return fmt.Errorf("module not found: %s", args[0])
		}

		var prefix string
		if len(args) == 2 {
			prefix = args[1]
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 8, ' ', 0)
		count := 0
		for r, err := range CurrentSession.engine.Symbols(m.Base) {
			if err != nil {
				tw.Flush()
				return err
			}
			if prefix != "" && !strings.HasPrefix(r.DecoratedName, prefix) && !strings.HasPrefix(r.Name(), prefix) {
				continue
			}
			fmt.Fprintf(tw, "%#x\t%s\n", r.Address, r.Name())
			count++
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d symbols in %s\n", count, m.Name)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(symbolsCmd)
}
