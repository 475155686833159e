package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/hyperjump/examforge/internal/models"
)

// ErrBatchExists is returned when writing a batch number that is already on disk.
var ErrBatchExists = errors.New("batch file already exists")

var batchName = regexp.MustCompile(`^batch_(\d{4,})\.json$`)

// BatchStore manages the write-once batch files of a run.
type BatchStore struct {
	dir string
}

// NewBatchStore returns a store rooted at dir.
func NewBatchStore(dir string) *BatchStore {
	return &BatchStore{dir: dir}
}

// Dir returns the batch directory.
func (s *BatchStore) Dir() string { return s.dir }

// Path returns the file path of batch n.
func (s *BatchStore) Path(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("batch_%04d.json", n))
}

// Exists reports whether batch n is on disk.
func (s *BatchStore) Exists(n int) bool {
	_, err := os.Stat(s.Path(n))
	return err == nil
}

// Write stores batch n. Existing batches are never overwritten.
func (s *BatchStore) Write(n int, questions []models.StructuredQuestion) error {
	if s.Exists(n) {
		return fmt.Errorf("batch %d: %w", n, ErrBatchExists)
	}
	if questions == nil {
		questions = []models.StructuredQuestion{}
	}
	return WriteJSONAtomic(s.Path(n), questions)
}

// Quarantine renames batch n out of the way and returns the new path.
func (s *BatchStore) Quarantine(n int, now time.Time) (string, error) {
	dst := fmt.Sprintf("%s.orphan-%d", s.Path(n), now.Unix())
	if err := os.Rename(s.Path(n), dst); err != nil {
		return "", err
	}
	return dst, nil
}

// List returns the committed batch numbers in ascending order.
func (s *BatchStore) List() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var nums []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := batchName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, nil
}

// Read returns the questions of batch n.
func (s *BatchStore) Read(n int) ([]models.StructuredQuestion, error) {
	data, err := os.ReadFile(s.Path(n))
	if err != nil {
		return nil, err
	}
	var qs []models.StructuredQuestion
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("decode batch %d: %w", n, err)
	}
	return qs, nil
}
