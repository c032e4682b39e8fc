package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/forest-guardian/truecolor-cli/internal/history"
	"github.com/forest-guardian/truecolor-cli/internal/layer"
	"github.com/forest-guardian/truecolor-cli/internal/submission"
)

// Submitter is satisfied by *submission.Submitter.
type Submitter interface {
	Submit(ctx context.Context, in submission.Input) submission.Result
}

type menuOption struct {
	title   string
	handler func(ctx context.Context) error
}

// Menu is the interactive front end: it collects user choices and hands them
// to the submitter, then reports the outcome.
type Menu struct {
	console   *Console
	submitter Submitter
	ledger    *history.Ledger
	loadLayer func(path, name string) (*layer.Info, error)
	spinner   bool
}

func NewMenu(console *Console, submitter Submitter, ledger *history.Ledger) *Menu {
	return &Menu{
		console:   console,
		submitter: submitter,
		ledger:    ledger,
		loadLayer: layer.Load,
		spinner:   true,
	}
}

// DisableSpinner turns off the progress spinner, for non-interactive output.
func (m *Menu) DisableSpinner() { m.spinner = false }

var errExit = errors.New("exit")

// ShowMenu displays the main menu and handles user input until the user
// exits, the input ends or ctx is cancelled.
func (m *Menu) ShowMenu(ctx context.Context) error {
	menuOptions := []menuOption{
		{"Fetch Sentinel-2 imagery for a date range", m.FetchImagery},
		{"Load the latest downloaded image as a layer", m.LoadLatestLayer},
		{"View submission history", m.ShowHistory},
		{"Exit the application", func(context.Context) error {
			fmt.Fprintln(m.console.Writer(), "Exiting...")
			return errExit
		}},
	}

	out := m.console.Writer()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprintf(out, "%s===================%s\n", ColorBlue, ColorReset)
		for i, opt := range menuOptions {
			fmt.Fprintf(out, "%s%d. %s%s\n", ColorBlue, i+1, opt.title, ColorReset)
		}

		choice, err := m.console.ReadInt("Please enter your choice: ", 1, len(menuOptions))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			m.console.PrintError(err.Error())
			continue
		}

		err = menuOptions[choice-1].handler(ctx)
		switch {
		case errors.Is(err, errExit), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			m.console.PrintError(err.Error())
		}
	}
}
