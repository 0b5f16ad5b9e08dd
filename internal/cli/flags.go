// Package cli holds flag helpers shared by command entry points.
package cli

import (
	"flag"
	"fmt"
	"io"

	"incgraph/internal/version"
)

type HelpVersionFlags struct {
	Help    bool
	Version bool
}

// AddHelpVersionFlags registers -h/--help and -v/--version on fs.
func AddHelpVersionFlags(fs *flag.FlagSet) *HelpVersionFlags {
	flags := &HelpVersionFlags{}
	if fs == nil {
		return flags
	}
	fs.BoolVar(&flags.Help, "help", false, "Show help")
	fs.BoolVar(&flags.Help, "h", false, "Show help")
	fs.BoolVar(&flags.Version, "version", false, "Print version and exit")
	fs.BoolVar(&flags.Version, "v", false, "Print version and exit")
	return flags
}

func PrintVersion(out io.Writer, name string) {
	if out == nil {
		return
	}
	fmt.Fprintf(out, "%s %s\n", name, version.Get())
}
