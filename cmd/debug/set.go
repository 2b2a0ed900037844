package debug

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set undecorate <on|off>",
	Short: "修改调试会话设置",
	Long: `修改调试会话设置，当前支持:
- undecorate: 符号名是否显示demangle之后的名字`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("参数错误")
		}

		switch args[0] {
		case "undecorate":
			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			CurrentSession.settings.SetUndecorateNames(on)
			return nil
		default:
			return fmt.Errorf("unknown setting: %s", args[0])
		}
	},
}

func init() {
	debugRootCmd.AddCommand(setCmd)
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid switch: %s, must be on or off", s)
	}
	return v, nil
}
