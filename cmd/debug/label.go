package debug

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label <address> <name>",
	Short: "为地址添加标签",
	Long: `为地址添加标签，查询符号名时标签优先于符号表。

标签会保存到配置的标签文件中，下次调试时自动加载。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupLabels,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("参数错误")
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		if err := CurrentSession.labels.Set(addr, args[1]); err != nil {
			return err
		}
		return CurrentSession.labels.Save(CurrentSession.settings.LabelsFile())
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "列出所有标签",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupLabels,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 8, ' ', 0)
		for _, e := range CurrentSession.labels.List() {
			fmt.Fprintf(tw, "%#x\t%s\n", e.Addr, e.Name)
		}
		return tw.Flush()
	},
}

var unlabelCmd = &cobra.Command{
	Use:   "unlabel <address>",
	Short: "删除地址的标签",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupLabels,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("参数错误")
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		if !CurrentSession.labels.Delete(addr) {
			return fmt.Errorf("no label at %#x", addr)
		}
		return CurrentSession.labels.Save(CurrentSession.settings.LabelsFile())
	},
}

func init() {
	debugRootCmd.AddCommand(labelCmd)
	debugRootCmd.AddCommand(labelsCmd)
	debugRootCmd.AddCommand(unlabelCmd)
}
