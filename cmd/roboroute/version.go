package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdrpinto/roboroute/internal/version"
)

var (
	versionFull   bool
	versionFormat string

	versionNameColor = color.New(color.FgCyan, color.Bold)
	versionDimColor  = color.New(color.FgHiBlack)
)

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include commit, build date and go version")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show roboroute build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			color.NoColor = true
		}
		b := version.Read()
		switch strings.ToLower(versionFormat) {
		case "json":
			return json.NewEncoder(cmd.OutOrStdout()).Encode(b)
		case "pretty":
			renderVersion(cmd.OutOrStdout(), b, versionFull)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func renderVersion(out io.Writer, b version.Build, full bool) {
	fmt.Fprintf(out, "%s %s", versionNameColor.Sprint("roboroute"), b.Version)
	if commit := b.ShortCommit(); commit != "" {
		versionDimColor.Fprintf(out, " (%s)", commit)
	}
	fmt.Fprintln(out)
	if !full {
		return
	}
	fmt.Fprintf(out, "built: %s\n", valueOrUnknown(b.BuildDate))
	fmt.Fprintf(out, "go:    %s\n", valueOrUnknown(b.GoVersion))
}

func valueOrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
