//go:build linux

package engine

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// availableCPUs lists the CPUs this process may run on.
func availableCPUs() []int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil
	}
	want := set.Count()
	cpus := make([]int, 0, want)
	for cpu := 0; len(cpus) < want; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}

// pinToCPU locks the calling goroutine to its OS thread and restricts that
// thread to cpu. The lock is kept for the goroutine's lifetime.
func pinToCPU(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}
