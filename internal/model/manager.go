// Package model resolves Vosk recognition models by path or language name,
// downloading and caching archives from the upstream model site as the
// original demo's loader does.
package model

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

type Manager struct {
	cacheDir string
	baseURL  string
	client   *http.Client
	log      *slog.Logger
}

func NewManager(cfg config.ModelConfig, log *slog.Logger) *Manager {
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = config.DefaultCacheDir()
	}
	return &Manager{
		cacheDir: cacheDir,
		baseURL:  strings.TrimRight(cfg.DownloadURL, "/"),
		client:   &http.Client{Timeout: 10 * time.Minute},
		log:      log,
	}
}

// Resolve turns a model selector into a local model directory. An existing
// directory is used as-is; otherwise the selector is treated as a language
// name or full model name, served from the cache or downloaded.
func (m *Manager) Resolve(ctx context.Context, nameOrPath string) (string, error) {
	if nameOrPath == "" {
		return "", fmt.Errorf("empty model selector")
	}

	if info, err := os.Stat(nameOrPath); err == nil && info.IsDir() {
		return nameOrPath, nil
	}

	full, err := m.fullModelName(ctx, nameOrPath)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(m.cacheDir, full)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	m.log.Info("downloading model",
		slog.String("model", full),
		slog.String("cache_dir", m.cacheDir))
	if err := m.download(ctx, full); err != nil {
		return "", err
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("model archive %s.zip did not contain directory %s", full, full)
	}
	return dir, nil
}

// fullModelName maps a short language name to its full model name. Full
// names pass through; the remote index is consulted first so new languages
// work without a release, with a built-in table as offline fallback.
func (m *Manager) fullModelName(ctx context.Context, name string) (string, error) {
	if strings.HasPrefix(name, "vosk-model-") {
		return name, nil
	}

	if aliases, err := m.fetchModelList(ctx); err == nil {
		if full, ok := aliases[name]; ok {
			return full, nil
		}
	} else {
		m.log.Warn("model list unavailable, using built-in table", slog.String("error", err.Error()))
	}

	if full, ok := builtinAliases[name]; ok {
		return full, nil
	}
	return "", fmt.Errorf("unknown model language %q (known: %s)", name, strings.Join(Languages(), ", "))
}

func (m *Manager) download(ctx context.Context, full string) error {
	url := fmt.Sprintf("%s/%s.zip", m.baseURL, full)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model %s: unexpected status %s", full, resp.Status)
	}

	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(m.cacheDir, full+"_*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return fmt.Errorf("save model archive: %w", err)
	}

	if err := extractZip(tmp.Name(), m.cacheDir); err != nil {
		return fmt.Errorf("extract model archive: %w", err)
	}
	return nil
}

// extractZip unpacks an archive into destDir, rejecting entries that would
// escape it.
func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(destDir, file.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", target, err)
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

func readAll(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
