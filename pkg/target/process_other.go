//go:build !linux

package target

import "fmt"

// Process 被调试进程信息
type Process struct {
	Pid     int
	Command string
	Args    []string
}

// Attach is only supported on linux
func Attach(pid int) (*Process, error) {
	return nil, ErrNotSupported
}

func (p *Process) Kind() Kind { return ATTACH }

func (p *Process) String() string { return fmt.Sprintf("pid %d: %s", p.Pid, p.Command) }

func (p *Process) Update() error { return ErrNotSupported }

func (p *Process) Mappings() []Mapping { return nil }

func (p *Process) ModuleNameFromAddr(addr uint64, withExt bool) (string, bool) {
	return "", false
}

func (p *Process) FilePathForLoadedModule(base uint64) (string, bool) {
	return "", false
}

func (p *Process) ReadMemory(addr uint64, buf []byte) (int, error) {
	return 0, ErrNotSupported
}
