package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v2"
	"github.com/siherrmann/diffuser/core/pipeline"
)

// ProgressObserver renders one progress bar per pipeline stage
type ProgressObserver struct {
	out io.Writer
	bar *progressbar.ProgressBar
	log *slog.Logger
}

// NewProgressObserver creates an observer writing to out.
// Render errors are logged to logger and never stop the pipeline.
func NewProgressObserver(out io.Writer, logger *slog.Logger) *ProgressObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressObserver{out: out, log: logger}
}

func (o *ProgressObserver) StageStarted(stage pipeline.Stage, total int) {
	fmt.Fprintf(o.out, "%s\n", stage)
	if total < 0 {
		o.bar = nil
		return
	}
	o.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(o.out),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (o *ProgressObserver) Advance(stage pipeline.Stage, n int) {
	if o.bar == nil {
		return
	}
	if err := o.bar.Add(n); err != nil {
		o.log.Warn("Error advancing progress bar", slog.String("stage", string(stage)), slog.String("error", err.Error()))
	}
}

func (o *ProgressObserver) StageFinished(stage pipeline.Stage) {
	if o.bar == nil {
		fmt.Fprintf(o.out, "%s done\n", stage)
		return
	}
	if err := o.bar.Finish(); err != nil {
		o.log.Warn("Error finishing progress bar", slog.String("stage", string(stage)), slog.String("error", err.Error()))
	}
	fmt.Fprintln(o.out)
	o.bar = nil
}
