package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusFailure Status = "failure"
)

type Record struct {
	ID           string    `csv:"id"`
	CreatedAt    time.Time `csv:"created_at"`
	Mode         string    `csv:"mode"`
	StartDate    string    `csv:"start_date"`
	EndDate      string    `csv:"end_date"`
	FileFormat   string    `csv:"file_format"`
	Persisted    bool      `csv:"persisted"`
	ResponsePath string    `csv:"response_path"`
	PreviewPath  string    `csv:"preview_path"`
	Status       Status    `csv:"status"`
	Message      string    `csv:"message"`
}

// Ledger is an append-only CSV file of past submissions.
type Ledger struct {
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Append(r Record) error {
	if err := os.MkdirAll(filepath.Dir(l.path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create history folder: %w", err)
	}

	info, statErr := os.Stat(l.path)
	writeHeader := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	records := []Record{r}
	if writeHeader {
		err = gocsv.MarshalFile(&records, file)
	} else {
		err = gocsv.MarshalWithoutHeaders(&records, file)
	}
	if err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}
	return nil
}

// All returns every record, oldest first. A missing file is an empty history.
func (l *Ledger) All() ([]Record, error) {
	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var records []Record
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return records, nil
}

// LatestPersisted returns the most recent record whose response was saved to disk.
func (l *Ledger) LatestPersisted() (Record, bool, error) {
	records, err := l.All()
	if err != nil {
		return Record{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Persisted && records[i].ResponsePath != "" {
			return records[i], true, nil
		}
	}
	return Record{}, false, nil
}
