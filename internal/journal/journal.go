package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/spf13/afero"
)

// Entry is one record whose insertion failed.
type Entry struct {
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	Path       string    `json:"path"`
	Record     any       `json:"record"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error"`
}

// Journal appends failed records to one JSON lines file per UTC day.
//
// dir
// - failed-2024-01-02.jsonl
// - failed-2024-01-03.jsonl
type Journal struct {
	fs  afero.Fs
	dir string
}

func New(fs afero.Fs, dir string) (*Journal, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = fs.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	return &Journal{fs: fs, dir: dir}, nil
}

func (j *Journal) filename(day time.Time) string {
	return path.Join(j.dir, fmt.Sprintf("failed-%s.jsonl", day.UTC().Format(time.DateOnly)))
}

func (j *Journal) Append(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}
	line = append(line, '\n')

	file, err := j.fs.OpenFile(j.filename(entry.Time), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	n, err := file.Write(line)
	if err != nil {
		return err
	}
	if n != len(line) {
		return fmt.Errorf("failed to write journal entry: short write")
	}

	return nil
}

// Entries reads back the entries written on day. Records are decoded
// as generic JSON values.
func (j *Journal) Entries(day time.Time) ([]Entry, error) {
	file, err := j.fs.Open(j.filename(day))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}
