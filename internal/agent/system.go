package agent

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// topProcesses is the row count of the process tables.
const topProcesses = 15

// SystemRegistry returns a registry with the built-in modules, backed by
// gopsutil.
func SystemRegistry() *Registry {
	r := NewRegistry()
	up := newRateMeter(func(c psnet.IOCountersStat) uint64 { return c.BytesSent })
	down := newRateMeter(func(c psnet.IOCountersStat) uint64 { return c.BytesRecv })

	r.Register("current_ram", currentRAM)
	r.Register("cpu_utilization", cpuUtilization)
	r.Register("load_avg", loadAvg)
	r.Register("cpu_info", cpuInfo)
	r.Register("general_info", generalInfo)
	r.Register("memory_info", memoryInfo)
	r.Register("swap", swap)
	r.Register("disk_partitions", diskPartitions)
	r.Register("ram_intensive_processes", func(ctx context.Context) (interface{}, error) {
		return intensiveProcesses(ctx, byMemory)
	})
	r.Register("cpu_intensive_processes", func(ctx context.Context) (interface{}, error) {
		return intensiveProcesses(ctx, byCPU)
	})
	r.Register("upload_transfer_rate", up.module)
	r.Register("download_transfer_rate", down.module)
	r.Register("ip_addresses", ipAddresses)
	r.Register("logged_in_users", loggedInUsers)
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toMB(b uint64) float64 {
	return round2(float64(b) / 1024 / 1024)
}

func currentRAM(ctx context.Context) (interface{}, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return struct {
		Total     float64 `json:"total"`
		Used      float64 `json:"used"`
		Available float64 `json:"available"`
	}{toMB(vm.Total), toMB(vm.Used), toMB(vm.Available)}, nil
}

func cpuUtilization(ctx context.Context) (interface{}, error) {
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	if len(pct) == 0 {
		return 0, nil
	}
	return round2(pct[0]), nil
}

type loadPercent struct {
	OneMin     float64 `json:"1_min_avg"`
	FiveMin    float64 `json:"5_min_avg"`
	FifteenMin float64 `json:"15_min_avg"`
}

// loadAsPercent expresses load averages as a share of all cores.
func loadAsPercent(avg *load.AvgStat, cores int) loadPercent {
	if cores < 1 {
		cores = 1
	}
	c := float64(cores)
	return loadPercent{
		OneMin:     round2(avg.Load1 / c * 100),
		FiveMin:    round2(avg.Load5 / c * 100),
		FifteenMin: round2(avg.Load15 / c * 100),
	}
}

func loadAvg(ctx context.Context) (interface{}, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	return loadAsPercent(avg, cores), nil
}

func cpuInfo(ctx context.Context) (interface{}, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	cores, _ := cpu.CountsWithContext(ctx, false)

	out := []map[string]string{{
		"Architecture": "",
		"CPU(s)":       strconv.Itoa(threads),
		"Core(s)":      strconv.Itoa(cores),
	}}
	if len(infos) > 0 {
		i := infos[0]
		out[0]["Model name"] = i.ModelName
		out[0]["Vendor ID"] = i.VendorID
		out[0]["CPU MHz"] = strconv.FormatFloat(round2(i.Mhz), 'f', -1, 64)
		out[0]["Cache size"] = humanize.IBytes(uint64(i.CacheSize) * 1024)
	}
	if hi, err := host.InfoWithContext(ctx); err == nil {
		out[0]["Architecture"] = hi.KernelArch
	}
	return out, nil
}

func generalInfo(ctx context.Context) (interface{}, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	uptime := time.Duration(hi.Uptime) * time.Second
	return []map[string]string{{
		"OS":          strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion),
		"Hostname":    hi.Hostname,
		"Kernel":      hi.KernelVersion,
		"Uptime":      uptime.String(),
		"Booted":      humanize.Time(time.Unix(int64(hi.BootTime), 0)),
		"Processes":   strconv.FormatUint(hi.Procs, 10),
		"Server Time": time.Now().Format(time.RFC1123),
	}}, nil
}

func memoryInfo(ctx context.Context) (interface{}, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return []map[string]string{{
		"MemTotal":     humanize.IBytes(vm.Total),
		"MemFree":      humanize.IBytes(vm.Free),
		"MemAvailable": humanize.IBytes(vm.Available),
		"Buffers":      humanize.IBytes(vm.Buffers),
		"Cached":       humanize.IBytes(vm.Cached),
		"SwapTotal":    humanize.IBytes(vm.SwapTotal),
		"SwapFree":     humanize.IBytes(vm.SwapFree),
	}}, nil
}

func swap(ctx context.Context) (interface{}, error) {
	devs, err := mem.SwapDevicesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		Filename string `json:"filename"`
		Size     string `json:"size"`
		Used     string `json:"used"`
	}
	rows := make([]row, 0, len(devs))
	for _, d := range devs {
		rows = append(rows, row{
			Filename: d.Name,
			Size:     humanize.IBytes(d.UsedBytes + d.FreeBytes),
			Used:     humanize.IBytes(d.UsedBytes),
		})
	}
	return rows, nil
}

func diskPartitions(ctx context.Context) (interface{}, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	type row struct {
		FileSystem string `json:"file_system"`
		Size       string `json:"size"`
		Used       string `json:"used"`
		Avail      string `json:"avail"`
		UsedPct    string `json:"used%"`
		Mounted    string `json:"mounted"`
	}
	rows := make([]row, 0, len(parts))
	for _, p := range parts {
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		rows = append(rows, row{
			FileSystem: p.Device,
			Size:       humanize.IBytes(u.Total),
			Used:       humanize.IBytes(u.Used),
			Avail:      humanize.IBytes(u.Free),
			UsedPct:    strconv.FormatFloat(round2(u.UsedPercent), 'f', -1, 64) + "%",
			Mounted:    p.Mountpoint,
		})
	}
	return rows, nil
}

type procRow struct {
	PID  int32   `json:"pid"`
	User string  `json:"user"`
	CPU  float64 `json:"cpu%"`
	Mem  float64 `json:"mem%"`
	RSS  string  `json:"rss"`
	Cmd  string  `json:"cmd"`
}

type procOrder int

const (
	byMemory procOrder = iota
	byCPU
)

// top returns the n heaviest rows, heaviest first.
func top(rows []procRow, order procOrder, n int) []procRow {
	sort.SliceStable(rows, func(i, j int) bool {
		if order == byCPU {
			return rows[i].CPU > rows[j].CPU
		}
		return rows[i].Mem > rows[j].Mem
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func intensiveProcesses(ctx context.Context, order procOrder) (interface{}, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]procRow, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		row := procRow{PID: p.Pid, Cmd: name}
		row.User, _ = p.UsernameWithContext(ctx)
		if m, err := p.MemoryPercentWithContext(ctx); err == nil {
			row.Mem = round2(float64(m))
		}
		if c, err := p.CPUPercentWithContext(ctx); err == nil {
			row.CPU = round2(c)
		}
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
			row.RSS = humanize.IBytes(mi.RSS)
		}
		rows = append(rows, row)
	}
	return top(rows, order, topProcesses), nil
}

// rateMeter turns a cumulative per-interface byte counter into KB/s.
// The first call only records a baseline and reports zero for every
// interface.
type rateMeter struct {
	mu    sync.Mutex
	pick  func(psnet.IOCountersStat) uint64
	now   func() time.Time
	last  map[string]uint64
	lastT time.Time
}

func newRateMeter(pick func(psnet.IOCountersStat) uint64) *rateMeter {
	return &rateMeter{pick: pick, now: time.Now}
}

func (m *rateMeter) module(ctx context.Context) (interface{}, error) {
	counters, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	cur := make(map[string]uint64, len(counters))
	for _, c := range counters {
		cur[c.Name] = m.pick(c)
	}
	return m.observe(cur), nil
}

func (m *rateMeter) observe(cur map[string]uint64) map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rates := transferRates(m.last, cur, now.Sub(m.lastT))
	m.last, m.lastT = cur, now
	return rates
}

// transferRates computes KB/s per interface between two counter samples.
// Interfaces without a previous sample, or whose counter went backwards,
// report zero.
func transferRates(prev, cur map[string]uint64, elapsed time.Duration) map[string]float64 {
	out := make(map[string]float64, len(cur))
	secs := elapsed.Seconds()
	for name, n := range cur {
		before, ok := prev[name]
		if !ok || secs <= 0 || n < before {
			out[name] = 0
			continue
		}
		out[name] = round2(float64(n-before) / 1024 / secs)
	}
	return out
}

func ipAddresses(ctx context.Context) (interface{}, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		Interface string `json:"interface"`
		IP        string `json:"ip"`
	}
	rows := []row{}
	for _, iface := range ifaces {
		for _, a := range iface.Addrs {
			ip := a.Addr
			if i := strings.IndexByte(ip, '/'); i >= 0 {
				ip = ip[:i]
			}
			rows = append(rows, row{Interface: iface.Name, IP: ip})
		}
	}
	return rows, nil
}

func loggedInUsers(ctx context.Context) (interface{}, error) {
	users, err := host.UsersWithContext(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		User string `json:"user"`
		From string `json:"from"`
		When string `json:"when"`
	}
	rows := make([]row, 0, len(users))
	for _, u := range users {
		rows = append(rows, row{
			User: u.User,
			From: u.Host,
			When: humanize.Time(time.Unix(int64(u.Started), 0)),
		})
	}
	return rows, nil
}
