package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var symdownloadCmd = &cobra.Command{
	Use:   "symdownload [store]",
	Short: "从符号仓库同步所有模块的调试信息",
	Long: `从符号仓库同步所有模块的调试信息。

同步期间搜索路径临时设置为 SRV*<cache_dir>*<store>，逐个重新加载模块，
结束后恢复原搜索路径。某个模块失败不影响其他模块。
未指定store时使用配置 symbols.store。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupModules,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		store := CurrentSession.settings.SymbolStore()
		if len(args) != 0 {
			store = args[0]
		}

		if err := CurrentSession.engine.DownloadAllSymbols(store); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All symbols downloaded!")
		return nil
	},
}

var searchPathCmd = &cobra.Command{
	Use:   "searchpath [path]",
	Short: "查看或设置符号搜索路径",
	Long: `查看或设置符号搜索路径，多个路径以分号分隔，
SRV*<cache>*<store> 表示在本地缓存目录中查找。

设置后只影响之后加载的模块。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupModules,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return CurrentSession.engine.SetSearchPath(args[0])
		}

		path, err := CurrentSession.engine.SearchPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(symdownloadCmd)
	debugRootCmd.AddCommand(searchPathCmd)
}
