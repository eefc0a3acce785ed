package metrics

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"inferd/pkg/types"
)

// SystemSnapshot reports best-effort host CPU and memory figures. A
// field that cannot be read carries Available=false instead of failing
// the caller.
func (m *Monitor) SystemSnapshot() types.SystemSnapshot {
	return types.SystemSnapshot{
		CPU:    readCPU("/proc/loadavg"),
		Memory: readMemory("/proc/meminfo"),
	}
}

func readCPU(loadavgPath string) types.CPUStat {
	st := types.CPUStat{Cores: runtime.NumCPU()}
	b, err := os.ReadFile(loadavgPath)
	if err != nil {
		return st
	}
	fields := strings.Fields(string(b))
	if len(fields) < 1 {
		return st
	}
	load1, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return st
	}
	st.Available = true
	st.Load1 = load1
	return st
}

func readMemory(meminfoPath string) types.MemoryStat {
	var st types.MemoryStat
	b, err := os.ReadFile(meminfoPath)
	if err != nil {
		return st
	}
	var totalKB, availKB int
	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.Atoi(fields[1])
		case "MemAvailable:":
			availKB, _ = strconv.Atoi(fields[1])
		}
	}
	if totalKB == 0 {
		return st
	}
	st.Available = true
	st.TotalMB = totalKB / 1024
	st.FreeMB = availKB / 1024
	return st
}
