//go:build linux

package target

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/symdbg/pkg/logflags"
)

// Process 被调试进程信息
type Process struct {
	Pid     int
	Command string   // 进程启动命令
	Args    []string // 进程启动参数

	proc procfs.Proc
	mu   sync.Mutex
	tbl  table

	log *logrus.Entry
}

// Attach reads the loaded-module table of running process pid. The process
// is neither stopped nor traced.
func Attach(pid int) (*Process, error) {
	proc, err := procfs.NewProc(pid)
	if err != nil {
		return nil, fmt.Errorf("process %d not existed: %v", pid, err)
	}

	p := &Process{
		Pid:  pid,
		proc: proc,
		log:  logflags.TargetLogger().WithField("pid", pid),
	}

	// initialize the command and arguments
	if p.Command, err = proc.Comm(); err != nil {
		return nil, fmt.Errorf("read comm err: %v", err)
	}
	if args, err := proc.CmdLine(); err == nil && len(args) > 1 {
		p.Args = args[1:]
	}

	if err := p.Update(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Process) Kind() Kind { return ATTACH }

// String pid and command line of the process
func (p *Process) String() string {
	return fmt.Sprintf("pid %d: %s", p.Pid, strings.Join(append([]string{p.Command}, p.Args...), " "))
}

// Update re-reads /proc/<pid>/maps
func (p *Process) Update() error {
	maps, err := p.proc.ProcMaps()
	if err != nil {
		return fmt.Errorf("read maps err: %v", err)
	}
	tbl := buildTable(maps)

	p.mu.Lock()
	p.tbl = tbl
	p.mu.Unlock()

	p.log.Debugf("%d modules mapped", len(tbl))
	return nil
}

// buildTable groups file-backed mappings by path: one module per file,
// spanning all of its mappings
func buildTable(maps []*procfs.ProcMap) table {
	byPath := map[string]*Mapping{}
	for _, m := range maps {
		path := strings.TrimSuffix(m.Pathname, " (deleted)")
		if !strings.HasPrefix(path, "/") {
			// anonymous, [heap], [stack], [vdso]...
			continue
		}
		start, end := uint64(m.StartAddr), uint64(m.EndAddr)
		mod, ok := byPath[path]
		if !ok {
			byPath[path] = &Mapping{Base: start, End: end, Path: path}
			continue
		}
		if start < mod.Base {
			mod.Base = start
		}
		if end > mod.End {
			mod.End = end
		}
	}

	tbl := make(table, 0, len(byPath))
	for _, m := range byPath {
		tbl = append(tbl, *m)
	}
	sort.Slice(tbl, func(i, j int) bool { return tbl[i].Base < tbl[j].Base })
	return tbl
}

func (p *Process) Mappings() []Mapping {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Mapping(nil), p.tbl...)
}

func (p *Process) ModuleNameFromAddr(addr uint64, withExt bool) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tbl.moduleName(addr, withExt)
}

// FilePathForLoadedModule re-reads the maps so a module unloaded since the
// last update is reported missing
func (p *Process) FilePathForLoadedModule(base uint64) (string, bool) {
	if err := p.Update(); err != nil {
		p.log.Debugf("update before file path lookup err: %v", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tbl.filePath(base)
}

// ReadMemory 读取内存地址addr处的数据，并存储到buf中，函数返回实际读取的字节数
func (p *Process) ReadMemory(addr uint64, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}

	n, err := unix.ProcessVMReadv(p.Pid, local, remote, 0)
	if err != nil {
		return n, fmt.Errorf("read memory at %#x err: %v", addr, err)
	}
	return n, nil
}

