package widget

// Page names of the built-in dashboard.
const (
	// LoadingPage is shown until the transport is negotiated. It is never
	// persisted as the last viewed page.
	LoadingPage = "loading"

	PageSystemStatus = "system-status"
	PageBasicInfo    = "basic-info"
	PageNetwork      = "network"
	PageAccounts     = "accounts"
	PageApps         = "apps"
)

// DefaultPage is where a session lands when nothing was persisted.
const DefaultPage = PageSystemStatus

// DefaultPages returns the built-in pages. Module names follow the
// linux-dash agent.
func DefaultPages() []Page {
	return []Page{
		{
			Name:  PageSystemStatus,
			Title: "System Status",
			Widgets: []Spec{
				{
					Name:    "ram-chart",
					Heading: "RAM Usage",
					Module:  "current_ram",
					Kind:    KindLine,
					Max:     100,
					Value:   `.used / .total * 100`,
					Units:   "%",
					Metrics: []MetricSpec{
						{Name: "Used", Expr: `"\(.used | floor) MB"`},
						{Name: "Available", Expr: `"\(.available | floor) MB"`},
						{Name: "Total", Expr: `"\(.total | floor) MB"`},
					},
				},
				{
					Name:     "cpu-avg-load-chart",
					Heading:  "CPU Avg Load",
					Info:     "Load average over 1, 5 and 15 minutes, as a share of all cores.",
					Module:   "load_avg",
					Kind:     KindMultiLine,
					Units:    "%",
					MinScale: 100,
				},
				{
					Name:    "cpu-utilization-chart",
					Heading: "CPU Utilization",
					Module:  "cpu_utilization",
					Kind:    KindLine,
					Max:     100,
					Value:   `.`,
					Units:   "%",
					Metrics: []MetricSpec{
						{Name: "Usage", Expr: `"\(.) %"`},
					},
				},
				{Name: "ram-intensive-processes", Heading: "RAM Intensive Processes", Module: "ram_intensive_processes", Kind: KindTable},
				{Name: "cpu-intensive-processes", Heading: "CPU Intensive Processes", Module: "cpu_intensive_processes", Kind: KindTable},
				{Name: "docker-processes", Heading: "Docker Processes", Module: "docker_processes", Kind: KindTable},
				{Name: "swap", Heading: "Swap", Module: "swap", Kind: KindTable},
				{Name: "disk-space", Heading: "Disk Partitions", Module: "disk_partitions", Kind: KindTable},
				{Name: "cpu-temp", Heading: "CPU Temp", Module: "cpu_temp", Kind: KindKeyValue},
			},
		},
		{
			Name:  PageBasicInfo,
			Title: "Basic Info",
			Widgets: []Spec{
				{Name: "machine-info", Heading: "General Info", Module: "general_info", Kind: KindKeyValue},
				{Name: "memory-info", Heading: "Memory Info", Module: "memory_info", Kind: KindKeyValue},
				{Name: "cpu-info", Heading: "CPU Info", Module: "cpu_info", Kind: KindKeyValue},
				{Name: "scheduled-crons", Heading: "Scheduled Cron Jobs", Module: "scheduled_crons", Kind: KindTable},
				{Name: "cron-history", Heading: "Cron Job History", Module: "cron_history", Kind: KindTable},
				{Name: "io-stats", Heading: "IO Stats", Module: "io_stats", Kind: KindTable},
			},
		},
		{
			Name:  PageNetwork,
			Title: "Network",
			Widgets: []Spec{
				{
					Name:     "upload-transfer-rate",
					Heading:  "Upload Transfer Rate",
					Module:   "upload_transfer_rate",
					Kind:     KindMultiLine,
					Units:    "KB/s",
					MinScale: 100,
				},
				{
					Name:     "download-transfer-rate",
					Heading:  "Download Transfer Rate",
					Module:   "download_transfer_rate",
					Kind:     KindMultiLine,
					Units:    "KB/s",
					MinScale: 100,
				},
				{Name: "ip-addresses", Heading: "IP Addresses", Module: "ip_addresses", Kind: KindTable},
				{Name: "network-connections", Heading: "Network Connections", Module: "network_connections", Kind: KindTable},
				{Name: "arp-cache", Heading: "ARP Cache Table", Module: "arp_cache", Kind: KindTable},
				{Name: "ping-speeds", Heading: "Ping Speeds", Module: "ping", Kind: KindTable},
				{Name: "bandwidth", Heading: "Bandwidth", Module: "bandwidth", Kind: KindKeyValue},
				{Name: "internet-speed", Heading: "Internet Speed", Module: "internet_speed", Kind: KindKeyValue},
			},
		},
		{
			Name:  PageAccounts,
			Title: "Accounts",
			Widgets: []Spec{
				{Name: "server-accounts", Heading: "Server Accounts", Module: "user_accounts", Kind: KindTable},
				{Name: "logged-in-accounts", Heading: "Logged In Accounts", Module: "logged_in_users", Kind: KindTable},
				{Name: "recent-logins", Heading: "Recent Logins", Module: "recent_account_logins", Kind: KindTable},
			},
		},
		{
			Name:  PageApps,
			Title: "Apps",
			Widgets: []Spec{
				{Name: "common-applications", Heading: "Common Applications", Module: "common_applications", Kind: KindTable},
				{Name: "memcached", Heading: "Memcached", Module: "memcached", Kind: KindKeyValue},
				{Name: "redis", Heading: "Redis", Module: "redis", Kind: KindKeyValue},
				{Name: "pm2", Heading: "PM2", Module: "pm2", Kind: KindTable},
			},
		},
	}
}

// FindPage returns the page called name.
func FindPage(pages []Page, name string) (Page, bool) {
	for _, p := range pages {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}

// PageNames lists page names in order.
func PageNames(pages []Page) []string {
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Name
	}
	return names
}
