package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const (
	requestFileName  = "request.json"
	responseFileBase = "response"
)

// Entry is one persisted request/response pair.
type Entry struct {
	Key          string
	Dir          string
	ResponsePath string
}

// ResponseStore keeps raw API responses on disk, one directory per distinct
// request payload: <root>/<md5(payload)>/{request.json,response.<ext>}.
type ResponseStore struct {
	root string
}

func NewResponseStore(root string) *ResponseStore {
	return &ResponseStore{root: root}
}

func (s *ResponseStore) Root() string { return s.root }

// GenerateKey derives the directory name from the request payload.
func (s *ResponseStore) GenerateKey(payload []byte) string {
	hash := md5.Sum(payload)
	return hex.EncodeToString(hash[:])
}

func (s *ResponseStore) entry(key, ext string) Entry {
	dir := filepath.Join(s.root, key)
	return Entry{
		Key:          key,
		Dir:          dir,
		ResponsePath: filepath.Join(dir, responseFileBase+"."+ext),
	}
}

// Get returns a previously saved response. Missing or empty files count as a miss.
func (s *ResponseStore) Get(key, ext string) (Entry, []byte, bool) {
	e := s.entry(key, ext)
	data, err := os.ReadFile(e.ResponsePath)
	if err != nil || len(data) == 0 {
		return Entry{}, nil, false
	}
	return e, data, true
}

func (s *ResponseStore) Set(key, ext string, payload, data []byte) (Entry, error) {
	e := s.entry(key, ext)
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return Entry{}, fmt.Errorf("failed to create response directory: %w", err)
	}
	if err := writeAtomic(filepath.Join(e.Dir, requestFileName), payload); err != nil {
		return Entry{}, err
	}
	if err := writeAtomic(e.ResponsePath, data); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func writeAtomic(path string, data []byte) error {
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
