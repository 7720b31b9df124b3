package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestAtomicWrite(t *testing.T) {
	testPath := filepath.Join(t.TempDir(), "config.yaml")

	data := []byte("log:\n  level: info\n")
	if err := atomicWrite(testPath, data); err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}

	// Verify temp file was cleaned up
	leftovers, _ := filepath.Glob(testPath + ".tmp-*")
	if len(leftovers) != 0 {
		t.Errorf("temp files were not cleaned up: %v", leftovers)
	}

	readData, err := os.ReadFile(testPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(readData) != string(data) {
		t.Errorf("content mismatch: got %q, want %q", string(readData), string(data))
	}
}

func TestAtomicWriteCreatesDir(t *testing.T) {
	testPath := filepath.Join(t.TempDir(), "subdir", "config.yaml")

	if err := atomicWrite(testPath, []byte("x: 1\n")); err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}
	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}
}

func TestBackupConfigFirstRun(t *testing.T) {
	testPath := filepath.Join(t.TempDir(), "config.yaml")

	if err := backupConfig(testPath); err != nil {
		t.Errorf("backupConfig should succeed on first run: %v", err)
	}
	if _, err := os.Stat(testPath + ".bak"); !os.IsNotExist(err) {
		t.Error("backup file should not exist on first run")
	}
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := NewConfig()
	cfg.DataDir = dir
	cfg.Search.TopK = 7
	cfg.Preferences.MaxBrandWeight = 2.5

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	if !strings.Contains(string(data), "top_k: 7") {
		t.Errorf("expected snake_case YAML keys, got:\n%s", data)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Search.TopK != 7 || loaded.Preferences.MaxBrandWeight != 2.5 || loaded.DataDir != dir {
		t.Errorf("config did not round trip: %+v", loaded)
	}
}

func TestSaveCreatesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := NewConfig()
	if err := Save(cfg, path); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	original, _ := os.ReadFile(path)

	cfg.Search.TopK = 20
	if err := Save(cfg, path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup was not created: %v", err)
	}
	if string(backup) != string(original) {
		t.Error("backup should hold the previous config")
	}
}

func TestSaveValidatesBeforeWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := NewConfig()
	cfg.Ranking.DisplayLimit = 0

	err := Save(cfg, path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("invalid config must not be written")
	}
}

func TestSaveConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cfg := NewConfig()
			cfg.Search.TopK = n
			_ = Save(cfg, path)
		}(i)
	}
	wg.Wait()

	clearEnv(t)
	if _, err := LoadFrom(path); err != nil {
		t.Errorf("config corrupted after concurrent writes: %v", err)
	}
}
