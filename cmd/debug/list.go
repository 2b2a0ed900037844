package debug

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var lineCmd = &cobra.Command{
	Use:   "line <address>",
	Short: "查询地址对应的源码位置",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSource,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("参数错误")
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		loc, err := CurrentSession.engine.ResolveSourceLine(addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%#x = %s\n", addr, loc)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list <address|file:lineno>",
	Short:   "查看源码信息",
	Aliases: []string{"l"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSource,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			file   string
			lineno int
			err    error
		)

		if len(args) != 1 {
			return errors.New("参数错误")
		}

		// parse location
		if addr, perr := parseAddress(args[0]); perr == nil {
			loc, err := CurrentSession.engine.ResolveSourceLine(addr)
			if err != nil {
				return err
			}
			file, lineno = loc.File, loc.Line
			fmt.Fprintf(cmd.OutOrStdout(), "line table get file:lineno = %s\n", loc)
		} else {
			file, lineno, err = parseFileLineno(args[0])
			if err != nil {
				return err
			}
		}

		// print lines
		return listFileLines(cmd.OutOrStdout(), file, lineno, 5)
	},
}

// list file lines, lineno is one-based
func listFileLines(w io.Writer, file string, lineno, rng int) error {

	lines, offset, err := listFile(file, lineno, rng)
	if err != nil {
		return fmt.Errorf("list file err: %v", err)
	}

	// use 1-based counter
	idx := offset + 1
	for _, ln := range lines {
		if idx != lineno {
			fmt.Fprintf(w, "%-4s\t%d\t%s\n", "", idx, ln)
		} else {
			fmt.Fprintf(w, "%-4s\t%d\t%s\n", "=>", idx, ln)
		}
		idx++
	}

	return nil
}

func init() {
	debugRootCmd.AddCommand(lineCmd)
	debugRootCmd.AddCommand(listCmd)
}

// must be form file:lineno, like main.go:100. The last colon separates the
// line number so that drive-letter paths like C:\src\main.c:10 work.
func parseFileLineno(s string) (file string, lineno int, err error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 {
		err = fmt.Errorf("invalid location: %s, must be file:lineno", s)
		return
	}

	file = s[:idx]
	v, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil || v <= 0 {
		err = fmt.Errorf("invalid location: %s, must be file:lineno", s)
		return
	}
	lineno = int(v)
	return
}

// return value `offset` is zero-based counter
func listFile(file string, lineno, rng int) (lines []string, offset int, err error) {
	dat, err := ioutil.ReadFile(file)
	if err != nil {
		err = fmt.Errorf("read file err: %v", err)
		return
	}

	raw := strings.Split(strings.TrimSuffix(string(dat), "\n"), "\n")
	count := len(raw)

	// lines [lineno-rng, lineno+rng], one-based
	begin := lineno - rng - 1
	if begin < 0 {
		begin = 0
	}
	if begin > count {
		return nil, count, nil
	}

	end := lineno + rng
	if end > count {
		end = count
	}

	return raw[begin:end], begin, nil
}
