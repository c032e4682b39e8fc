package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/forest-guardian/truecolor-cli/internal/history"
	"github.com/forest-guardian/truecolor-cli/internal/sentinel"
	"github.com/forest-guardian/truecolor-cli/internal/submission"
	"github.com/schollz/progressbar/v3"
)

// FetchImagery prompts for the request parameters and submits them.
func (m *Menu) FetchImagery(ctx context.Context) error {
	c := m.console

	start, err := c.ReadDate("Enter the start date (YYYY-MM-DD): ")
	if err != nil {
		return err
	}
	end, err := c.ReadDate("Enter the end date (YYYY-MM-DD): ")
	if err != nil {
		return err
	}

	formats := make([]string, len(sentinel.FileFormats))
	for i, f := range sentinel.FileFormats {
		formats[i] = string(f)
	}
	format, err := c.ReadChoice("\nAvailable file formats:", formats)
	if err != nil {
		return err
	}

	modes := make([]string, len(sentinel.Modes))
	for i, md := range sentinel.Modes {
		modes[i] = string(md)
	}
	mode, err := c.ReadChoice("\nAvailable modes:", modes)
	if err != nil {
		return err
	}

	persist, err := c.ReadBool("Download the image to disk? [y/N]: ", false)
	if err != nil {
		return err
	}
	var loadLayer bool
	if persist {
		loadLayer, err = c.ReadBool("Load the downloaded image as a layer? [y/N]: ", false)
		if err != nil {
			return err
		}
	}

	res := m.submit(ctx, submission.Input{
		Start: start,
		End:   end,
		Options: sentinel.OutputOptions{
			FileFormat:    sentinel.FileFormat(format),
			PersistToDisk: persist,
			Mode:          sentinel.Mode(mode),
			LoadLayer:     loadLayer,
		},
	})
	ReportResult(c, res)
	return nil
}

func (m *Menu) submit(ctx context.Context, in submission.Input) submission.Result {
	if !m.spinner {
		return m.submitter.Submit(ctx, in)
	}
	var res submission.Result
	runWithSpinner(m.console.Writer(), "Requesting imagery", func() {
		res = m.submitter.Submit(ctx, in)
	})
	return res
}

func runWithSpinner(out io.Writer, description string, fn func()) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			_ = bar.Finish()
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

// ReportResult prints the outcome of one submission.
func ReportResult(c *Console, res submission.Result) {
	for _, w := range res.Warnings {
		c.PrintWarning(w)
	}

	if res.Status == history.StatusFailure {
		c.PrintError(res.Message)
		return
	}

	c.PrintSuccess(res.Message)
	out := c.Writer()
	if res.ResponsePath != "" {
		fmt.Fprintf(out, "%s Response saved at: %s%s\n", ColorGreen, res.ResponsePath, ColorReset)
	}
	if res.PreviewPath != "" {
		fmt.Fprintf(out, "%s Preview located at: %s%s\n", ColorGreen, res.PreviewPath, ColorReset)
	}
	if res.Layer != nil {
		fmt.Fprintf(out, "%s Layer loaded: %s%s\n", ColorGreen, describeLayer(res.Layer), ColorReset)
	}
}
