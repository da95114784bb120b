package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileBlacklist keeps banned creator addresses in a plain text file, one
// address per line. The whole file is loaded at construction; Add both
// updates the in-memory set and appends to the file.
type FileBlacklist struct {
	mu        sync.Mutex
	path      string
	addresses map[string]struct{}
}

// NewFileBlacklist loads the blacklist at path. A missing file is an
// empty blacklist, not an error.
func NewFileBlacklist(path string) (*FileBlacklist, error) {
	b := &FileBlacklist{
		path:      path,
		addresses: make(map[string]struct{}),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("open blacklist: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		addr := strings.TrimSpace(scanner.Text())
		if addr != "" {
			b.addresses[addr] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return b, nil
}

// Contains reports whether address is banned.
func (b *FileBlacklist) Contains(address string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.addresses[address]
	return ok
}

// Add bans address. Re-adding a banned address is a no-op.
func (b *FileBlacklist) Add(address string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.addresses[address]; ok {
		return nil
	}

	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open blacklist for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, address); err != nil {
		return fmt.Errorf("append to blacklist: %w", err)
	}
	b.addresses[address] = struct{}{}
	return nil
}

var _ Blacklist = (*FileBlacklist)(nil)
