package debug

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hitzhangjie/symdbg/pkg/config"
	"github.com/hitzhangjie/symdbg/pkg/label"
	"github.com/hitzhangjie/symdbg/pkg/logflags"
	"github.com/hitzhangjie/symdbg/pkg/symbol"
	"github.com/hitzhangjie/symdbg/pkg/symres"
	"github.com/hitzhangjie/symdbg/pkg/target"
)

const (
	cmdGroupAnnotation = "cmd_group_annotation"

	cmdGroupModules = "1-modules"
	cmdGroupSymbols = "2-symbols"
	cmdGroupSource  = "3-source"
	cmdGroupLabels  = "4-labels"
	cmdGroupOthers  = "5-other"
	cmdGroupCobra   = "other"

	cmdGroupDelimiter = "-"

	prefix    = "symdbg> "
	descShort = "symdbg interactive commands"
)

var debugRootCmd = &cobra.Command{
	Use:          "help [command]",
	Short:        descShort,
	SilenceUsage: true,
}

var (
	CurrentSession *DebugSession
)

// DebugSession 调试会话
type DebugSession struct {
	done     chan bool
	stopOnce sync.Once
	prefix   string
	root     *cobra.Command
	liner    *liner.State
	last     string

	target   target.Target
	engine   *symres.Engine
	labels   *label.Store
	settings *config.Settings
	names    *nameIndex

	defers []func()
}

// NewDebugSession 创建调试会话，加载目标各模块的符号与调试信息
func NewDebugSession(t target.Target, settings *config.Settings) (*DebugSession, error) {

	fn := func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		// 描述信息
		fmt.Fprintln(out, cmd.Short)
		fmt.Fprintln(out)

		// 使用信息
		fmt.Fprintln(out, cmd.Use)
		fmt.Fprintln(out, cmd.Flags().FlagUsages())

		// 命令分组
		fmt.Fprintln(out, helpMessageByGroups(cmd))
	}
	debugRootCmd.SetHelpFunc(fn)

	labels := label.NewStore()
	if err := labels.Load(settings.LabelsFile()); err != nil {
		return nil, err
	}

	s := &DebugSession{
		done:     make(chan bool),
		prefix:   prefix,
		root:     debugRootCmd,
		target:   t,
		labels:   labels,
		settings: settings,
		names:    newNameIndex(),
	}

	engine, err := symres.New(symres.Options{
		Provider: symbol.NewELFProvider(settings.SearchPath()),
		Labels:   labels,
		Loaded:   t,
		Config:   settings,
		Notifier: s,
		Progress: s,
	})
	if err != nil {
		return nil, err
	}
	s.engine = engine

	s.Printf("%s %s\n", t.Kind(), t)

	mappings := t.Mappings()
	images := make([]symres.Image, 0, len(mappings))
	for _, m := range mappings {
		images = append(images, symres.Image{Base: m.Base, Path: m.Path})
	}
	n := engine.LoadModules(images)
	s.Printf("已加载 %d/%d 个模块的符号\n", n, len(images))

	return s, nil
}

// Start 进入交互式命令循环，直到exit或者输入结束
func (s *DebugSession) Start() {
	s.liner = liner.NewLiner()
	s.liner.SetCompleter(s.complete)
	s.liner.SetTabCompletionStyle(liner.TabPrints)

	defer func() {
		s.liner.Close()
		for idx := len(s.defers) - 1; idx >= 0; idx-- {
			s.defers[idx]()
		}
	}()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		txt, err := s.liner.Prompt(s.prefix)
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read command err: %v\n", err)
			return
		}

		txt = strings.TrimSpace(txt)
		if len(txt) != 0 {
			s.last = txt
			s.liner.AppendHistory(txt)
		} else {
			txt = s.last
		}
		if len(txt) == 0 {
			continue
		}

		s.Exec(txt)
	}
}

// Exec 执行一条调试命令，命令选项在执行后恢复为默认值
func (s *DebugSession) Exec(line string) error {
	s.root.SetArgs(strings.Fields(line))
	c, err := s.root.ExecuteC()
	if c != nil {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	return err
}

func (s *DebugSession) AtExit(fn func()) *DebugSession {
	s.defers = append(s.defers, fn)
	return s
}

func (s *DebugSession) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Cleanup 保存标签，被调试进程只被读取，保持运行
func (s *DebugSession) Cleanup() {
	if err := s.labels.Save(s.settings.LabelsFile()); err != nil {
		fmt.Fprintf(os.Stderr, "save labels err: %v\n", err)
	}
}

// UpdateModuleList 模块列表变化后，符号名补全索引需要重建
func (s *DebugSession) UpdateModuleList(count int, mods []symbol.ModuleRecord) {
	s.names.invalidate()
	logflags.ModulesLogger().Debugf("module list updated, %d modules", count)
}

// Printf 输出长时间操作的进度信息
func (s *DebugSession) Printf(format string, args ...interface{}) {
	fmt.Fprintf(s.root.OutOrStdout(), format, args...)
}

// commands whose last argument is a symbol name
var symbolArgCommands = map[string]bool{
	"addr": true,
	"a":    true,
}

func (s *DebugSession) complete(line string) []string {
	fields := strings.Fields(line)
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(line, " ")) {
		return completer(line)
	}
	if !symbolArgCommands[fields[0]] {
		return nil
	}

	var word string
	if !strings.HasSuffix(line, " ") {
		word = fields[len(fields)-1]
	}
	head := line[:len(line)-len(word)]

	var lines []string
	for _, name := range s.names.search(s.engine, word) {
		lines = append(lines, head+name)
	}
	return lines
}

func completer(line string) []string {
	cmds := []string{}
	for _, c := range debugRootCmd.Commands() {
		// complete cmd
		if strings.HasPrefix(c.Use, line) {
			cmds = append(cmds, strings.Split(c.Use, " ")[0])
		}
		// complete cmd's aliases
		for _, alias := range c.Aliases {
			if strings.HasPrefix(alias, line) {
				cmds = append(cmds, alias)
			}
		}
	}
	return cmds
}

// helpMessageByGroups 将各个命令按照分组归类，再展示帮助信息
func helpMessageByGroups(cmd *cobra.Command) string {

	// key:group, val:sorted commands in same group
	groups := map[string][]string{}
	for _, c := range cmd.Commands() {
		// 如果没有指定命令分组，放入other组
		groupName, ok := c.Annotations[cmdGroupAnnotation]
		if !ok {
			groupName = cmdGroupCobra
		}

		groupCmds := append(groups[groupName], fmt.Sprintf("  %-16s:%s", c.Name(), c.Short))
		sort.Strings(groupCmds)

		groups[groupName] = groupCmds
	}

	if len(groups[cmdGroupCobra]) != 0 {
		groups[cmdGroupOthers] = append(groups[cmdGroupOthers], groups[cmdGroupCobra]...)
	}
	delete(groups, cmdGroupCobra)

	// 按照分组名进行排序
	groupNames := []string{}
	for k := range groups {
		groupNames = append(groupNames, k)
	}
	sort.Strings(groupNames)

	// 按照group分组，并对组内命令进行排序
	buf := bytes.Buffer{}
	for _, groupName := range groupNames {
		commands := groups[groupName]

		group := strings.Split(groupName, cmdGroupDelimiter)[1]
		buf.WriteString(fmt.Sprintf("- [%s]\n", group))

		for _, cmd := range commands {
			buf.WriteString(fmt.Sprintf("%s\n", cmd))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
