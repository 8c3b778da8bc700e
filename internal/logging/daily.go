package logging

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFile appends to <dir>/timesync_YYYYMMDD.log, switching files when the
// local date changes. Write errors are dropped.
type DailyFile struct {
	dir string

	mu   sync.Mutex
	day  string
	file *os.File
}

func NewDailyFile(dir string) *DailyFile {
	return &DailyFile{dir: dir}
}

func (d *DailyFile) Path(t time.Time) string {
	return filepath.Join(d.dir, "timesync_"+t.Format("20060102")+".log")
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := Now()
	day := now.Format("20060102")
	if d.file == nil || d.day != day {
		if d.file != nil {
			d.file.Close()
			d.file = nil
		}
		if err := os.MkdirAll(d.dir, 0755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(d.Path(now), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return 0, err
		}
		d.file = f
		d.day = day
	}
	return d.file.Write(p)
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Tail returns up to n trailing lines of today's file.
func (d *DailyFile) Tail(n int) ([]string, error) {
	d.mu.Lock()
	path := d.Path(Now())
	d.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}
