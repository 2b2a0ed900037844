package debug

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:     "modules",
	Short:   "刷新并显示已加载模块",
	Aliases: []string{"mods"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupModules,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		mods, err := CurrentSession.engine.RefreshModules()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 8, ' ', 0)
		for _, m := range mods {
			path, _ := CurrentSession.target.FilePathForLoadedModule(m.Base)
			fmt.Fprintf(tw, "%#x\t%s\t%s\n", m.Base, m.Name, path)
		}
		return tw.Flush()
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <address> <file>",
	Short: "加载模块的符号与调试信息",
	Long: `加载模块的符号与调试信息，模块映射在address处。

用于被调试进程新加载了动态库，或者需要手动指定调试文件的场景。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupModules,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("参数错误")
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return CurrentSession.engine.ModuleLoaded(addr, args[1])
	},
}

var unloadCmd = &cobra.Command{
	Use:   "unload <address>",
	Short: "卸载模块的符号与调试信息",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupModules,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("参数错误")
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return CurrentSession.engine.ModuleUnloaded(addr)
	},
}

func init() {
	debugRootCmd.AddCommand(modulesCmd)
	debugRootCmd.AddCommand(loadCmd)
	debugRootCmd.AddCommand(unloadCmd)
}
