package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultFileName = ".funding-quotes-state.json"
)

// FileStorage keeps every key in one JSON document on disk
type FileStorage struct {
	filePath string
	mu       sync.RWMutex
	values   map[string]json.RawMessage
}

type fileDocument struct {
	Values map[string]json.RawMessage `json:"values"`
}

// NewFileStorage opens or creates the state file. An empty path uses the home directory.
func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	s := &FileStorage{
		filePath: filePath,
		values:   make(map[string]json.RawMessage),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return s, nil
}

func (s *FileStorage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if doc.Values != nil {
		s.values = doc.Values
	}
	return nil
}

// saveLocked writes through a temp file so readers never see a partial document
func (s *FileStorage) saveLocked() error {
	data, err := json.MarshalIndent(fileDocument{Values: s.values}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Set stores value under key and flushes the file
func (s *FileStorage) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = data
	return s.saveLocked()
}

// Get decodes the value under key into dest
func (s *FileStorage) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("key '%s': %w", key, ErrNotFound)
	}
	return json.Unmarshal(data, dest)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FileStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.saveLocked()
}

// Close is a no-op; every write is already on disk
func (s *FileStorage) Close() error {
	return nil
}

// Path returns the state file path
func (s *FileStorage) Path() string {
	return s.filePath
}
