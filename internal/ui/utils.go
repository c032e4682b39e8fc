package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/forest-guardian/truecolor-cli/internal/sentinel"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

// Console reads prompts from in and writes colored output to out.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	now func() time.Time
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out, now: time.Now}
}

func (c *Console) Writer() io.Writer { return c.out }

// PrintWarning displays a warning message with consistent formatting
func (c *Console) PrintWarning(message string) {
	fmt.Fprintf(c.out, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(c.out, "%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func (c *Console) PrintError(message string) {
	fmt.Fprintf(c.out, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func (c *Console) PrintSuccess(message string) {
	fmt.Fprintf(c.out, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func (c *Console) PrintInfo(message string) {
	fmt.Fprintf(c.out, "%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a string from the input with trimming. io.EOF is returned
// once the input is exhausted.
func (c *Console) ReadString(prompt string) (string, error) {
	c.PrintInfo(prompt)
	input, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadInt reads an integer with validation
func (c *Console) ReadInt(prompt string, min, max int) (int, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}

	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}

	return value, nil
}

// ReadDate reads a YYYY-MM-DD date no later than today. "today" is accepted as
// a shortcut.
func (c *Console) ReadDate(prompt string) (string, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return "", err
	}
	today := c.now().Format(sentinel.DateLayout)
	if input == "today" {
		return today, nil
	}
	if _, err := time.Parse(sentinel.DateLayout, input); err != nil {
		return "", fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	if input > today {
		return "", fmt.Errorf("date %s is in the future. Latest allowed date is %s", input, today)
	}
	return input, nil
}

// ReadBool reads a yes/no answer. An empty answer yields def.
func (c *Console) ReadBool(prompt string, def bool) (bool, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(input) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid answer: %s. Please enter y or n", input)
}

// ReadChoice lists options and returns the selected one. An empty answer
// selects the first option.
func (c *Console) ReadChoice(title string, options []string) (string, error) {
	fmt.Fprintf(c.out, "%s%s%s\n", ColorGreen, title, ColorReset)
	for i, opt := range options {
		fmt.Fprintf(c.out, "%s%d. %s%s\n", ColorGreen, i+1, opt, ColorReset)
	}
	input, err := c.ReadString(fmt.Sprintf("Enter your choice [1-%d] (default 1): ", len(options)))
	if err != nil {
		return "", err
	}
	if input == "" {
		return options[0], nil
	}
	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(options) {
		return "", fmt.Errorf("invalid choice: %s", input)
	}
	return options[choice-1], nil
}
