package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
)

// TimestampLayout formats file name timestamps, e.g. 2024-05-01-13-45-09.
const TimestampLayout = "2006-01-02-15-04-05"

// FileConfig defines file store configuration info
type FileConfig struct {
	Dir string
	// Now overrides the clock used for file name timestamps.
	Now func() time.Time
}

type fileManager struct {
	dir string
	now func() time.Time
}

// NewFileManager returns a store writing into a local directory, creating it
// when it does not exist.
func NewFileManager(ctx context.Context, config FileConfig) (Manager, error) {
	if config.Dir == "" {
		return nil, errors.New("no output directory in config")
	}
	dir := filepath.Clean(config.Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", dir)
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &fileManager{dir: dir, now: now}, nil
}

// Close ...
func (mgr *fileManager) Close() error {
	return nil
}

func (mgr *fileManager) OutputDir() string {
	return mgr.dir
}

// Put writes through a temporary file so readers never observe a partial payload.
func (mgr *fileManager) Put(ctx context.Context, key string, value []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := mgr.path(key)
	if err != nil {
		return nil, err
	}
	tmp, err := ioutil.TempFile(mgr.dir, "."+key+".*")
	if err != nil {
		return nil, errors.Wrap(err, "creating temporary file")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(value); err != nil {
		_ = tmp.Close()
		return nil, errors.Wrapf(err, "writing %s", key)
	}
	if err = tmp.Close(); err != nil {
		return nil, errors.Wrapf(err, "closing %s", key)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return nil, errors.Wrapf(err, "setting mode of %s", key)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return nil, errors.Wrapf(err, "renaming into %s", path)
	}

	sum := blake3.Sum256(value)
	result := &Result{
		Key:    key,
		Path:   path,
		Size:   len(value),
		Digest: hex.EncodeToString(sum[:]),
	}
	log.WithField("path", path).WithField("size", result.Size).Info("Data saved to file")
	return result, nil
}

func (mgr *fileManager) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := mgr.path(key)
	if err != nil {
		return nil, err
	}
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrorNoRecord
	}
	return b, err
}

func (mgr *fileManager) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := ioutil.ReadDir(mgr.dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing output directory")
	}
	keys := make([]string, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (mgr *fileManager) TimestampedFilename(prefix, id, ext string) string {
	timestamp := FormattedTimestamp(mgr.now())
	if id != "" {
		return fmt.Sprintf("%s_%s_%s.%s", prefix, id, timestamp, ext)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, ext)
}

func (mgr *fileManager) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", errors.Errorf("invalid file name %q", key)
	}
	return filepath.Join(mgr.dir, key), nil
}

// FormattedTimestamp renders `t` in UTC using TimestampLayout.
func FormattedTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
