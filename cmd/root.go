/*
Copyright © 2020 hit.zhangjie@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hitzhangjie/symdbg/pkg/config"
	"github.com/hitzhangjie/symdbg/pkg/logflags"
)

var (
	cfgFile  string
	settings *config.Settings
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "symdbg",
	Short: "symdbg 是一个符号解析调试器",
	Long: `symdbg 是一个符号解析调试器，读取被调试进程或可执行程序的模块列表，
加载模块的符号表与调试信息，支持符号查询、地址与符号名互查、源码行定位、
标签管理以及从远程符号仓库同步调试信息。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			logFlag, _ = cmd.Flags().GetBool("log")
			logStr, _  = cmd.Flags().GetString("log-output")
		)
		if err := logflags.Setup(logFlag, logStr); err != nil {
			return err
		}

		s, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		settings = s
		logflags.SymbolsLogger().Debugf("config file: %q", s.ConfigFile())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件 (默认 $HOME/.symdbg/config.yaml)")
	rootCmd.PersistentFlags().Bool("log", false, "开启调试日志")
	rootCmd.PersistentFlags().String("log-output", "", "开启日志的模块，逗号分隔：symbols,modules,provider,target")
	rootCmd.PersistentFlags().Bool("undecorate", true, "显示demangle之后的符号名")

	viper.BindPFlag(config.KeyUndecorate, rootCmd.PersistentFlags().Lookup("undecorate"))
}
