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
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/symdbg/cmd/debug"
	"github.com/hitzhangjie/symdbg/pkg/target"
)

// attachCmd represents the attach command
var attachCmd = &cobra.Command{
	Use:   "attach <traceePID>",
	Short: "读取运行中进程的符号",
	Long:  `读取运行中进程已加载的模块，加载各模块的符号表与调试信息，进入调试会话`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("参数错误")
		}

		pid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%s invalid traceePID", args[0])
		}

		proc, err := target.Attach(int(pid))
		if err != nil {
			return err
		}
		return startSession(proc)
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func startSession(t target.Target) error {
	s, err := debug.NewDebugSession(t, settings)
	if err != nil {
		return err
	}
	debug.CurrentSession = s.AtExit(s.Cleanup)
	s.Start()
	return nil
}
