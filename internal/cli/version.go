package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/rileyhilliard/ldash/internal/ui"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X". Commit and date fall back to the VCS stamp of
// the binary when left unset.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

var versionShort bool

// VersionOutput is the --json form of `ldash version`.
type VersionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the ldash version, the commit and date it was built from, and the Go toolchain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

func buildInfo() VersionOutput {
	out := VersionOutput{
		Version: version,
		Commit:  commit,
		Date:    date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && out.Commit == "":
				out.Commit = s.Value
			case s.Key == "vcs.time" && out.Date == "":
				out.Date = s.Value
			}
		}
	}
	if out.Commit == "" {
		out.Commit = "unknown"
	}
	if out.Date == "" {
		out.Date = "unknown"
	}
	return out
}

func printVersion(w io.Writer) error {
	info := buildInfo()
	switch {
	case machineMode:
		return WriteJSONSuccess(w, info)
	case versionShort:
		_, err := fmt.Fprintln(w, info.Version)
		return err
	}

	_, err := io.WriteString(w, ui.RenderHeader(ui.HeaderInfo{Version: formatVersion(info.Version)})+
		ui.RenderPairs(
			[]string{"commit", "built", "go", "platform"},
			[]string{info.Commit, info.Date, info.Go, info.OS + "/" + info.Arch},
		))
	return err
}

// formatVersion adds the v prefix to release versions.
func formatVersion(v string) string {
	if v == "" || v == "dev" || v[0] == 'v' {
		return v
	}
	return "v" + v
}

// SetVersionInfo is called from main with the ldflags values.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func GetVersion() string {
	return version
}
