package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/fiberpol/internal/storage"
	"github.com/san-kum/fiberpol/internal/viz"
)

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

// output opens outFile, or stdout when it is empty.
func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tALPHA\tS1\tS2\tS3\tSOURCE\tTRACE")
	for _, run := range runs {
		alpha := "-"
		if run.Alpha != nil {
			alpha = fmt.Sprintf("%.2f°", deg(*run.Alpha))
		}
		spark := ""
		if tr, err := st.LoadTrace(run.ID); err == nil {
			spark = viz.Sparkline(tr.Intensity, 24)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%+.3f\t%+.3f\t%+.3f\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			alpha,
			run.Stokes.S1, run.Stokes.S2, run.Stokes.S3,
			run.Source,
			spark,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	rows := []viz.Row{
		{Label: "kind", Value: string(meta.Kind)},
		{Label: "time", Value: meta.Timestamp.Local().Format("2006-01-02 15:04:05")},
		{Label: "fast axis", Value: meta.FastAxis},
		{Label: "samples", Value: fmt.Sprintf("%d", meta.Samples)},
	}
	if meta.Source != "" {
		rows = append(rows, viz.Row{Label: "source", Value: meta.Source})
	}
	if g := meta.Guide; g != nil {
		rows = append(rows,
			viz.Row{Label: "guide", Value: fmt.Sprintf("HE%d%d a=%.0fnm λ=%.0fnm %s", g.Azimuthal, g.Radial, g.RadiusNM, g.WavelengthNM, g.Direction)},
			viz.Row{Label: "V / U", Value: fmt.Sprintf("%.6f / %.6f", g.V, g.U)},
		)
	}
	if meta.Alpha != nil {
		rows = append(rows, viz.AngleRow("alpha", *meta.Alpha))
	}
	if f := meta.Fit; f != nil {
		rows = append(rows,
			viz.AngleRow("initial", f.InitialAlpha),
			viz.Row{Label: "residual", Value: fmt.Sprintf("%.3e", f.Residual)},
			viz.Row{Label: "evaluations", Value: fmt.Sprintf("%d", f.Evaluations)},
		)
	}

	fmt.Println(viz.Report(meta.ID, meta.Stokes, rows...))
	fmt.Println(viz.PlotTrace(tr, viz.PlotOptions{Width: plotWidth, Caption: "intensity vs analyzer angle 0..360°"}))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	out, err := output()
	if err != nil {
		return err
	}
	defer out.Close()
	return storage.ExportJSON(out, *meta, tr)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	out, err := output()
	if err != nil {
		return err
	}
	defer out.Close()
	return storage.WriteTraceCSV(out, tr)
}

func exportPlot(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}

	series := make([]viz.Series, 0, len(args))
	for _, id := range args {
		tr, err := st.LoadTrace(id)
		if err != nil {
			return err
		}
		series = append(series, viz.Series{Name: id, Trace: tr})
	}

	if err := viz.SavePlot(plotOut, "analyzer trace", series...); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s)\n", plotOut, viz.FormatOf(plotOut))
	return nil
}
