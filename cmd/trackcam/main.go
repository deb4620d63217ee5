// Command trackcam tracks a single object in a camera or video stream. A
// click (or an ROI drawn after pressing 's') selects the target; a visual
// tracker follows it and a constant-velocity Kalman filter smooths the
// estimate and coasts through short losses.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/trackcam/internal/config"
	"github.com/banshee-data/trackcam/internal/monitoring"
	"github.com/banshee-data/trackcam/internal/version"
)

var exampleUsage = strings.TrimSpace(`
  trackcam run --source 0
  trackcam run --source clip.mp4 --tuning config/tuning.defaults.json --record track.db
  trackcam run --source clip.mp4 --headless --region 120,80,60,60 --record track.db
  trackcam report --db track.db --session <id> --html track.html --png track.png
`)

func main() {
	log := monitoring.Logger()

	rc, err := config.LoadRuntimeConfig()
	if err != nil {
		log.Error().Err(err).Msg("trackcam")
		os.Exit(1)
	}

	root := newRootCmd(rc)
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("trackcam")
		os.Exit(1)
	}
}

func newRootCmd(rc config.RuntimeConfig) *cobra.Command {
	root := &cobra.Command{
		Use:           "trackcam",
		Short:         "Single-object video tracking with Kalman coasting",
		Example:       exampleUsage,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(rc), newReportCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
