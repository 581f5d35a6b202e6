package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/properties"
)

type CacheEntry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	Delete(key string) error
	GenerateKey(params ...interface{}) string
}

// FileCache stores one JSON file per key. Entries whose checksum does not match are treated
// as missing.
type FileCache[T any] struct {
	cacheDir string
}

var _ CacheService[int] = (*FileCache[int])(nil)

// NewFileCache keeps entries under dir. A relative dir is resolved under <ROOT_PATH>/data.
func NewFileCache[T any](dir string) *FileCache[T] {
	if !filepath.IsAbs(dir) {
		dir = properties.DataPath(dir)
	}
	return &FileCache[T]{
		cacheDir: dir,
	}
}

func (fc *FileCache[T]) Dir() string {
	return fc.cacheDir
}

func (fc *FileCache[T]) GenerateKey(params ...interface{}) string {
	var keyData string
	for _, param := range params {
		keyData += fmt.Sprintf("%v_", param)
	}
	h := sha1.New()
	h.Write([]byte(keyData))
	return hex.EncodeToString(h.Sum(nil))
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.cacheDir, key+".json")
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T

	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, false
	}

	var entry CacheEntry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false
	}

	if entry.Checksum != fc.calculateChecksum(entry.Data) {
		return zero, false
	}

	return entry.Data, true
}

// Set writes the entry to a temp file and renames it, so a crash never leaves a partial entry.
func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	entry := CacheEntry[T]{
		Data:      data,
		CreatedAt: time.Now(),
		Checksum:  fc.calculateChecksum(data),
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	cacheFile := fc.path(key)
	tmpFile := cacheFile + ".tmp"

	if err := os.WriteFile(tmpFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	if err := os.Rename(tmpFile, cacheFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	return nil
}

func (fc *FileCache[T]) Delete(key string) error {
	if err := os.Remove(fc.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (fc *FileCache[T]) calculateChecksum(data T) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return hex.EncodeToString(hash[:])
}
