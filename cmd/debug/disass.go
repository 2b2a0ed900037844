package debug

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/arch/x86/x86asm"
)

var disassCmd = &cobra.Command{
	Use:   "disass <address>",
	Short: "反汇编机器指令",
	Long: `反汇编被调试进程内存中的机器指令，跳转、调用目标显示为符号名。

只支持attach的进程，exec的可执行程序没有运行，读取不到内存。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSource,
	},
	Aliases: []string{"dis", "disassemble"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			max, _    = cmd.Flags().GetUint64("max")
			syntax, _ = cmd.Flags().GetString("syntax")
		)
		if len(args) != 1 {
			return errors.New("参数错误")
		}

		addr, err := parseAddress(args[0])
		if err != nil {
			// allow disassembling a function by its name
			var ok bool
			if addr, ok = CurrentSession.engine.ResolveAddress(args[0]); !ok {
				return fmt.Errorf("invalid address or symbol: %s", args[0])
			}
		}

		// 指令数据
		dat := make([]byte, 1024)
		n, err := CurrentSession.target.ReadMemory(addr, dat)
		if err != nil || n == 0 {
			return fmt.Errorf("peek text error: %v, bytes: %d", err, n)
		}
		return disassemble(cmd.OutOrStdout(), addr, dat[:n], max, syntax, CurrentSession.engine.Symbolize)
	},
}

func init() {
	debugRootCmd.AddCommand(disassCmd)

	disassCmd.Flags().Uint64P("max", "n", 10, "反汇编指令数量")
	disassCmd.Flags().StringP("syntax", "s", "gnu", "反汇编指令语法，支持：go, gnu, intel")
}

// disassemble 反汇编地址addr处的指令数据dat
func disassemble(w io.Writer, addr uint64, dat []byte, max uint64, syntax string, symname x86asm.SymLookup) error {
	tw := tabwriter.NewWriter(w, 0, 4, 8, ' ', 0)

	offset := uint64(0)
	count := uint64(0)

	for count < max && offset < uint64(len(dat)) {
		inst, err := x86asm.Decode(dat[offset:], 64)
		if err != nil {
			tw.Flush()
			return fmt.Errorf("x86asm decode error at %#x: %v", addr+offset, err)
		}

		pc := addr + offset
		asm, err := instSyntax(inst, pc, syntax, symname)
		if err != nil {
			tw.Flush()
			return fmt.Errorf("x86asm syntax error: %v", err)
		}

		end := offset + uint64(inst.Len)
		fmt.Fprintf(tw, "%#x:\t% x\t%s\n", pc, dat[offset:end], asm)
		offset = end
		count++
	}
	return tw.Flush()
}

func instSyntax(inst x86asm.Inst, pc uint64, syntax string, symname x86asm.SymLookup) (string, error) {
	asm := ""
	switch syntax {
	case "go":
		asm = x86asm.GoSyntax(inst, pc, symname)
	case "gnu":
		asm = x86asm.GNUSyntax(inst, pc, symname)
	case "intel":
		asm = x86asm.IntelSyntax(inst, pc, symname)
	default:
		return "", fmt.Errorf("invalid asm syntax error")
	}
	return asm, nil
}
