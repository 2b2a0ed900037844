package debug

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var addrCmd = &cobra.Command{
	Use:     "addr <symbol>",
	Short:   "查询符号的地址",
	Aliases: []string{"a"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSymbols,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("参数错误")
		}

		addr, ok := CurrentSession.engine.ResolveAddress(args[0])
		if !ok {
			return fmt.Errorf("symbol not found: %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %#x\n", args[0], addr)
		return nil
	},
}

var nameCmd = &cobra.Command{
	Use:   "name <address>",
	Short: "查询地址处的符号名",
	Long: `查询地址处的符号名，标签优先于符号表。

地址恰好是符号起始地址时显示为 module.symbol，
否则显示地址所在的符号及偏移量，如 main+0x10。`,
	Aliases: []string{"n"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSymbols,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("参数错误")
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		if name, ok := CurrentSession.engine.ResolveSymbolicName(addr); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%#x = %s\n", addr, name)
			return nil
		}

		// not a symbol start, show the covering symbol
		name, start := CurrentSession.engine.Symbolize(addr)
		if name == "" {
			return fmt.Errorf("no symbol at %#x", addr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%#x = %s+%#x\n", addr, name, addr-start)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(addrCmd)
	debugRootCmd.AddCommand(nameCmd)
}

func parseAddress(locStr string) (uint64, error) {
	v, err := strconv.ParseUint(locStr, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %v", err)
	}
	return v, nil
}
