package pipeline

import (
	"fmt"
	"os"
	"time"
)

// FailureLog appends failure lines of the form
// "timestamp | Q<number> | <reason>" to a log file. The file is append-only;
// earlier runs' entries are kept for audit.
type FailureLog struct {
	path string
	now  func() time.Time
}

func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path, now: time.Now}
}

// Append writes one failure line. Logging failures are returned so the caller
// can surface them, but they never fail the record itself.
func (f *FailureLog) Append(number int, reason string) error {
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open failure log: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("%s | Q%d | %s\n", f.now().Format(time.RFC3339), number, reason)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("append failure log: %w", err)
	}
	return nil
}
