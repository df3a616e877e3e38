package system

import "github.com/shirou/gopsutil/v3/mem"

// AvailableMemory returns the bytes the OS reports as available, or 0 when
// the figure cannot be read.
func AvailableMemory() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.Available
}
