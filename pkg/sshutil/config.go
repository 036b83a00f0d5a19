package sshutil

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// Host is one concrete Host entry of an SSH config file.
type Host struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description is a short user@hostname:port summary for pickers.
func (h Host) Description() string {
	var sb strings.Builder
	if h.User != "" {
		sb.WriteString(h.User + "@")
	}
	if h.Hostname != "" {
		sb.WriteString(h.Hostname)
	} else {
		sb.WriteString(h.Alias)
	}
	if h.Port != "" && h.Port != "22" {
		sb.WriteString(":" + h.Port)
	}
	return sb.String()
}

// ListHosts returns the concrete aliases declared in the SSH config at path,
// sorted by alias. Wildcard patterns are skipped. A missing file yields no hosts.
func ListHosts(path string) ([]Host, error) {
	if path == "" {
		path = filepath.Join(homeDir(), ".ssh", "config")
	}
	cfg, _, err := loadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	var hosts []Host
	for _, h := range cfg.Hosts {
		for _, p := range h.Patterns {
			alias := p.String()
			if alias == "" || seen[alias] || strings.ContainsAny(alias, "*?!") {
				continue
			}
			seen[alias] = true

			entry := Host{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			entry.Port, _ = cfg.Get(alias, "Port")
			hosts = append(hosts, entry)
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Alias < hosts[j].Alias })
	return hosts, nil
}

// loadConfig decodes the SSH config at path. Match blocks are not supported
// by the decoder, so they are commented out first; the line of the first one
// is returned so callers can explain missing hosts.
func loadConfig(path string) (*ssh_config.Config, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	cleaned, matchLine := stripMatchBlocks(data)
	cfg, err := ssh_config.Decode(bytes.NewReader(cleaned))
	if err != nil {
		return nil, matchLine, err
	}
	return cfg, matchLine, nil
}

// stripMatchBlocks comments out Match lines and the indented directives
// under them.
func stripMatchBlocks(data []byte) ([]byte, int) {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	inMatch := false
	first := 0
	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		fields := strings.Fields(trimmed)

		if len(fields) > 0 && strings.EqualFold(fields[0], "match") {
			if first == 0 {
				first = line
			}
			inMatch = true
			out.WriteString("# " + text + "\n")
			continue
		}
		if inMatch && len(fields) > 0 && strings.EqualFold(fields[0], "host") {
			inMatch = false
		}
		if inMatch && trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			out.WriteString("# " + text + "\n")
			continue
		}
		out.WriteString(text + "\n")
	}
	return out.Bytes(), first
}
