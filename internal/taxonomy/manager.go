package taxonomy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Metadata records provenance for a downloaded taxonomy snapshot.
type Metadata struct {
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size"`
}

// Manager maintains an on-disk snapshot of the additive taxonomy so sessions
// without network access can still resolve additive names. Freshness is
// checked against the remote ETag before re-downloading.
type Manager struct {
	url          string
	snapshotPath string
	metadataPath string
	httpClient   *http.Client
	log          *slog.Logger
}

// NewManager creates a snapshot manager for the taxonomy at url.
func NewManager(url, snapshotPath, metadataPath string, logger *slog.Logger) *Manager {
	return &Manager{
		url:          url,
		snapshotPath: snapshotPath,
		metadataPath: metadataPath,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		log:          logger,
	}
}

// EnsureSnapshot makes sure a current taxonomy snapshot exists on disk,
// downloading or refreshing it as needed.
func (m *Manager) EnsureSnapshot(ctx context.Context) error {
	start := time.Now()
	m.log.Info("Ensuring taxonomy snapshot is available", "path", m.snapshotPath)

	if _, err := os.Stat(m.snapshotPath); err == nil {
		upToDate, err := m.isUpToDate(ctx)
		if err != nil {
			m.log.Warn("Failed to verify taxonomy freshness", "error", err)
		}
		if upToDate {
			m.log.Info("Taxonomy snapshot is up-to-date", "duration", time.Since(start))
			return nil
		}
	}

	if err := m.download(ctx); err != nil {
		return fmt.Errorf("failed to download taxonomy: %w", err)
	}

	m.log.Info("Taxonomy snapshot ensured", "duration", time.Since(start))
	return nil
}

func (m *Manager) isUpToDate(ctx context.Context) (bool, error) {
	local, err := m.loadMetadata()
	if err != nil {
		m.log.Debug("No local taxonomy metadata", "error", err)
		return false, nil
	}

	remote, err := m.remoteMetadata(ctx)
	if err != nil {
		return false, err
	}

	if remote.ETag != "" && local.ETag != "" {
		return remote.ETag == local.ETag, nil
	}
	return remote.Size > 0 && remote.Size == local.Size, nil
}

// remoteMetadata fetches ETag and size via a HEAD request.
func (m *Manager) remoteMetadata(ctx context.Context) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HEAD request failed with status: %d", resp.StatusCode)
	}

	return &Metadata{
		ETag: resp.Header.Get("ETag"),
		Size: resp.ContentLength,
	}, nil
}

func (m *Manager) download(ctx context.Context) error {
	start := time.Now()
	m.log.Info("Downloading additive taxonomy", "url", m.url, "path", m.snapshotPath)

	if err := os.MkdirAll(filepath.Dir(m.snapshotPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Reject payloads the cache would not be able to parse.
	if _, err := parsePayload(data); err != nil {
		return fmt.Errorf("remote taxonomy is malformed: %w", err)
	}

	tmpPath := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, m.snapshotPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	sum := sha256.Sum256(data)
	meta := &Metadata{
		SHA256:       hex.EncodeToString(sum[:]),
		DownloadedAt: time.Now().UTC(),
		ETag:         resp.Header.Get("ETag"),
		Size:         int64(len(data)),
	}
	if err := m.saveMetadata(meta); err != nil {
		m.log.Warn("Failed to save taxonomy metadata", "error", err)
	}

	m.log.Info("Taxonomy downloaded", "bytes", len(data), "duration", time.Since(start))
	return nil
}

func (m *Manager) loadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(m.metadataPath)
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Manager) saveMetadata(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.metadataPath, data, 0644)
}
