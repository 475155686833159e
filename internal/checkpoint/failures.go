package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/examforge/internal/models"
)

// FailureLog is the append-only per-record failure file.
// Each line reads "<RFC3339 timestamp> | Q<number> | <reason>".
type FailureLog struct {
	path string
}

// NewFailureLog returns a log at path.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

// Append adds one record to the log.
func (l *FailureLog) Append(r models.FailureRecord) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	reason := strings.ReplaceAll(r.Reason, "\n", " ")
	_, werr := fmt.Fprintf(f, "%s | Q%d | %s\n", r.Timestamp.Format(time.RFC3339), r.QuestionNumber, reason)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// Read parses every well-formed line of the log. A missing file yields no records.
func (l *FailureLog) Read() ([]models.FailureRecord, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []models.FailureRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if r, ok := parseFailureLine(sc.Text()); ok {
			out = append(out, r)
		}
	}
	return out, sc.Err()
}

func parseFailureLine(line string) (models.FailureRecord, bool) {
	parts := strings.SplitN(line, " | ", 3)
	if len(parts) != 3 || !strings.HasPrefix(parts[1], "Q") {
		return models.FailureRecord{}, false
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return models.FailureRecord{}, false
	}
	n, err := strconv.Atoi(parts[1][1:])
	if err != nil {
		return models.FailureRecord{}, false
	}
	return models.FailureRecord{QuestionNumber: n, Timestamp: ts, Reason: parts[2]}, true
}
