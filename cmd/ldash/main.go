// Command ldash is a terminal dashboard for a linux-dash agent.
package main

import "github.com/rileyhilliard/ldash/internal/cli"

// Release builds stamp these:
//
//	go build -ldflags "-X main.version=0.3.0 -X main.commit=$(git rev-parse HEAD)" ./cmd/ldash
var version, commit, date = "dev", "", ""

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.Execute()
}
