package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"rateScope/internal/model"
)

// JsonlStorage appends quote records to a JSONL file, or to a writer when no
// path is set.
type JsonlStorage struct {
	path string
	out  io.Writer
	mu   sync.Mutex
}

// NewJsonlStorage appends to the file at path, creating parent directories on demand.
func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// NewJsonlWriter streams records to w, typically stdout.
func NewJsonlWriter(w io.Writer) *JsonlStorage {
	return &JsonlStorage{out: w}
}

// PutQuoteBatch appends a batch of quotes as JSON lines.
func (s *JsonlStorage) PutQuoteBatch(ctx context.Context, quotes []model.QuoteRecord) error {
	if len(quotes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out != nil {
		return writeLines(s.out, quotes)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	return writeLines(file, quotes)
}

func writeLines(w io.Writer, quotes []model.QuoteRecord) error {
	writer := bufio.NewWriter(w)
	for _, record := range quotes {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal quote record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write quote record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
