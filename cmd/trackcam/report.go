package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/trackcam/internal/report"
	"github.com/banshee-data/trackcam/internal/security"
	"github.com/banshee-data/trackcam/internal/tracklog"
)

type reportOptions struct {
	dbPath    string
	sessionID string
	htmlPath  string
	pngPath   string
	outDir    string
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List recorded sessions or chart one of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "track log database written by 'run --record'")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "session to chart; lists sessions when empty")
	cmd.Flags().StringVar(&opts.htmlPath, "html", "", "write an interactive HTML chart")
	cmd.Flags().StringVar(&opts.pngPath, "png", "", "write a static chart (.png, .svg or .pdf)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "write <session>.html and <session>.png into this directory")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runReport(ctx context.Context, out io.Writer, opts reportOptions) error {
	store, err := tracklog.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.sessionID == "" {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		return writeSessions(out, sessions)
	}

	points, err := store.Points(ctx, opts.sessionID)
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		if err := opts.fillFromOutDir(); err != nil {
			return err
		}
	}
	tr := report.NewTrajectory(opts.sessionID, points)
	fmt.Fprintf(out, "session %s: %d frames, %d tracked, %d coasting\n",
		tr.SessionID, tr.Frames, len(tr.Corrected), len(tr.Coasted))

	if opts.htmlPath != "" {
		f, err := os.Create(opts.htmlPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", opts.htmlPath, err)
		}
		if err := report.RenderHTML(f, tr); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", opts.htmlPath)
	}
	if opts.pngPath != "" {
		if err := report.SavePNG(opts.pngPath, tr); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", opts.pngPath)
	}
	return nil
}

// fillFromOutDir derives any unset chart paths from outDir and the
// session ID.
func (o *reportOptions) fillFromOutDir() error {
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", o.outDir, err)
	}
	var err error
	if o.htmlPath == "" {
		if o.htmlPath, err = security.OutputPath(o.outDir, o.sessionID, ".html"); err != nil {
			return err
		}
	}
	if o.pngPath == "" {
		if o.pngPath, err = security.OutputPath(o.outDir, o.sessionID, ".png"); err != nil {
			return err
		}
	}
	return nil
}

func writeSessions(out io.Writer, sessions []tracklog.Session) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(out, "no sessions recorded")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tFRAME\tPOINTS\tTRACKED\tCOASTED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			s.ID, s.StartedAt.Format(time.RFC3339), s.StartFrame, s.Points, s.Tracked, s.Coasted)
	}
	return tw.Flush()
}
