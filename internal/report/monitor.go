package report

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ResourceMetrics aggregates host utilisation sampled while a prompt ran.
type ResourceMetrics struct {
	CPUUsageAvg    float64 `json:"cpu_usage_avg"`
	CPUUsageMax    float64 `json:"cpu_usage_max"`
	CPUTempAvg     float64 `json:"cpu_temp_avg"`
	CPUTempMax     float64 `json:"cpu_temp_max"`
	MemoryUsageAvg float64 `json:"memory_usage_avg"`
	MemoryUsageMax float64 `json:"memory_usage_max"`
}

type sample struct {
	cpu  float64
	temp float64
	mem  float64
}

// Monitor samples CPU, memory and thermal readings once a second in a
// background goroutine. Readings come from /proc and sysfs; on hosts
// without a thermal zone the temperature fields stay zero.
type Monitor struct {
	mu      sync.Mutex
	samples []sample
	stop    chan struct{}
	done    chan struct{}
}

// Start begins sampling. Call Stop to collect the aggregate.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.samples = nil
	m.mu.Unlock()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop()
}

func (m *Monitor) loop() {
	defer close(m.done)
	prevIdle, prevTotal := readCPUStat()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			idle, total := readCPUStat()
			var cpu float64
			if dt := total - prevTotal; dt > 0 {
				cpu = 100 * (1 - float64(idle-prevIdle)/float64(dt))
			}
			prevIdle, prevTotal = idle, total
			s := sample{cpu: cpu, temp: readCPUTemp(), mem: readMemUsage()}
			m.mu.Lock()
			m.samples = append(m.samples, s)
			m.mu.Unlock()
		}
	}
}

// Stop halts sampling and returns avg/max over the collected samples.
func (m *Monitor) Stop() ResourceMetrics {
	if m.stop == nil {
		return ResourceMetrics{}
	}
	close(m.stop)
	<-m.done
	m.stop = nil

	m.mu.Lock()
	samples := m.samples
	m.mu.Unlock()

	var out ResourceMetrics
	if len(samples) == 0 {
		return out
	}
	for _, s := range samples {
		out.CPUUsageAvg += s.cpu
		out.CPUTempAvg += s.temp
		out.MemoryUsageAvg += s.mem
		if s.cpu > out.CPUUsageMax {
			out.CPUUsageMax = s.cpu
		}
		if s.temp > out.CPUTempMax {
			out.CPUTempMax = s.temp
		}
		if s.mem > out.MemoryUsageMax {
			out.MemoryUsageMax = s.mem
		}
	}
	n := float64(len(samples))
	out.CPUUsageAvg /= n
	out.CPUTempAvg /= n
	out.MemoryUsageAvg /= n
	return out
}

// readCPUStat returns cumulative idle and total jiffies from /proc/stat.
func readCPUStat() (idle, total int64) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, 0
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0
	}
	for i, v := range fields[1:] {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		total += n
		if i == 3 || i == 4 { // idle + iowait
			idle += n
		}
	}
	return idle, total
}

func readCPUTemp() float64 {
	data, err := os.ReadFile("/sys/class/thermal/thermal_zone0/temp")
	if err != nil {
		return 0
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0
	}
	return milli / 1000
}

// readMemUsage returns used memory as a percentage of MemTotal.
func readMemUsage() float64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()
	var total, avail float64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = v
		case "MemAvailable:":
			avail = v
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * (total - avail) / total
}
