package harness

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// SystemInfo is a snapshot of the host the compatibility run executed on.
// It heads every run report so a failure can be tied to the machine that
// produced it.
type SystemInfo struct {
	Timestamp     time.Time
	OS            string
	Platform      string
	KernelVersion string
	Arch          string
	CPUModel      string
	PhysicalCores int
	LogicalCores  int
	MaxFreqMHz    float64
	TotalMemory   uint64
	AvailMemory   uint64
	UsedPercent   float64
	SwapTotal     uint64
	SwapUsed      uint64
}

// CollectSystemInfo gathers host details. Every probe is best effort: a
// source that cannot be read leaves its fields zero and the run continues.
func CollectSystemInfo() SystemInfo {
	info := SystemInfo{
		Timestamp: time.Now(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if hi, err := host.Info(); err == nil {
		info.Platform = fmt.Sprintf("%s %s", hi.Platform, hi.PlatformVersion)
		info.KernelVersion = hi.KernelVersion
	} else {
		utils.LogDebug(fmt.Sprintf("host info unavailable: %v", err))
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
		info.MaxFreqMHz = cpus[0].Mhz
	} else if err != nil {
		utils.LogDebug(fmt.Sprintf("cpu info unavailable: %v", err))
	}

	if physical, err := cpu.Counts(false); err == nil {
		info.PhysicalCores = physical
	}
	if logical, err := cpu.Counts(true); err == nil {
		info.LogicalCores = logical
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
		info.AvailMemory = vm.Available
		info.UsedPercent = vm.UsedPercent
	} else {
		utils.LogDebug(fmt.Sprintf("memory info unavailable: %v", err))
	}

	if swap, err := mem.SwapMemory(); err == nil {
		info.SwapTotal = swap.Total
		info.SwapUsed = swap.Used
	}

	return info
}

// Format renders the snapshot as the human-readable block used in reports.
func (s SystemInfo) Format() string {
	var b strings.Builder
	rule := strings.Repeat("-", 40)

	b.WriteString("PLATFORM:\n" + rule + "\n")
	fmt.Fprintf(&b, "OS: %s (%s)\n", s.Platform, s.OS)
	fmt.Fprintf(&b, "Kernel: %s\n", s.KernelVersion)
	fmt.Fprintf(&b, "Architecture: %s\n", s.Arch)

	b.WriteString("\nCPU:\n" + rule + "\n")
	fmt.Fprintf(&b, "Processor: %s\n", s.CPUModel)
	fmt.Fprintf(&b, "Physical Cores: %d\n", s.PhysicalCores)
	fmt.Fprintf(&b, "Logical Cores: %d\n", s.LogicalCores)
	if s.MaxFreqMHz > 0 {
		fmt.Fprintf(&b, "Max Frequency: %.0f MHz\n", s.MaxFreqMHz)
	}

	b.WriteString("\nMEMORY:\n" + rule + "\n")
	fmt.Fprintf(&b, "Total RAM: %s\n", utils.FormatBytes(int64(s.TotalMemory)))
	fmt.Fprintf(&b, "Available RAM: %s\n", utils.FormatBytes(int64(s.AvailMemory)))
	fmt.Fprintf(&b, "Used: %.1f%%\n", s.UsedPercent)
	fmt.Fprintf(&b, "Swap: %s used of %s\n", utils.FormatBytes(int64(s.SwapUsed)), utils.FormatBytes(int64(s.SwapTotal)))

	return b.String()
}
