package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// ProgressFunc receives download progress updates. total is -1 when the
// server did not send a length.
type ProgressFunc func(name string, downloaded, total int64)

// Store is the download cache for server artifacts and model files. It is an
// explicit state object handed to the commands that need it; nothing in the
// core consults ambient globals to find cached files.
type Store struct {
	ArtifactsDir string
	ModelsDir    string
	Client       utils.HTTPClient // GitHub API calls; downloads use a no-timeout client
	Progress     ProgressFunc     // optional

	// Endpoint overrides for tests; empty means the public services.
	GitHubAPIBase string
	HFBase        string
}

// NewStore builds a Store rooted at the standard cache location.
func NewStore() (*Store, error) {
	artifactsDir, err := utils.GetArtifactsDir()
	if err != nil {
		return nil, err
	}
	modelsDir, err := utils.GetModelsDir()
	if err != nil {
		return nil, err
	}
	return &Store{
		ArtifactsDir: artifactsDir,
		ModelsDir:    modelsDir,
		Client:       utils.GetHTTPClient(),
	}, nil
}

// githubRelease is the subset of the GitHub release payload the harness
// consumes. The full payload is still saved alongside the artifacts.
type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		Size               int64  `json:"size"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// EnsureArtifacts downloads every llama-server asset of a release of
// owner/repo into <ArtifactsDir>/<tag>/, reusing the cache when latest.txt
// still names that tag. An empty or "latest" pin resolves through the latest
// release endpoint. Returns the release directory and tag.
func (s *Store) EnsureArtifacts(owner, repo, pin string) (string, string, error) {
	release, rawPayload, err := s.fetchRelease(owner, repo, pin)
	if err != nil {
		return "", "", err
	}

	tag := release.TagName
	if tag == "" {
		tag = time.Now().Format("200601021504")
	}
	releaseDir := filepath.Join(s.ArtifactsDir, tag)
	latestTxt := filepath.Join(s.ArtifactsDir, "latest.txt")

	if cachedTag, err := os.ReadFile(latestTxt); err == nil &&
		strings.TrimSpace(string(cachedTag)) == tag && dirHasEntries(releaseDir) {
		utils.LogDebug(fmt.Sprintf("Using cached artifacts for release %s from %s", tag, releaseDir))
		return releaseDir, tag, nil
	}

	// A half-downloaded release dir from an interrupted run is useless;
	// start it over.
	if err := os.RemoveAll(releaseDir); err != nil {
		return "", "", fmt.Errorf("failed to clear stale release directory: %w", err)
	}
	if err := utils.EnsureDir(releaseDir); err != nil {
		return "", "", err
	}

	if err := os.WriteFile(filepath.Join(releaseDir, "release.json"), rawPayload, 0644); err != nil {
		return "", "", fmt.Errorf("failed to save release metadata: %w", err)
	}

	for _, asset := range release.Assets {
		if !strings.HasPrefix(asset.Name, "llama-server-") {
			continue
		}
		assetPath := filepath.Join(releaseDir, asset.Name)
		if err := s.downloadFile(asset.BrowserDownloadURL, assetPath, asset.Name, asset.Size); err != nil {
			return "", "", fmt.Errorf("failed to download %s: %w", asset.Name, err)
		}
		if runtime.GOOS != "windows" {
			if err := os.Chmod(assetPath, 0755); err != nil {
				return "", "", fmt.Errorf("failed to mark %s executable: %w", asset.Name, err)
			}
		}
	}

	if err := os.WriteFile(latestTxt, []byte(tag), 0644); err != nil {
		return "", "", fmt.Errorf("failed to update latest.txt: %w", err)
	}

	return releaseDir, tag, nil
}

func (s *Store) fetchRelease(owner, repo, pin string) (*githubRelease, []byte, error) {
	base := s.GitHubAPIBase
	if base == "" {
		base = "https://api.github.com"
	}
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", base, owner, repo)
	if pin != "" && pin != "latest" {
		url = fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", base, owner, repo, pin)
	}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("release lookup for %s/%s failed with status %d", owner, repo, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read release payload: %w", err)
	}

	var release githubRelease
	if err := json.Unmarshal(payload, &release); err != nil {
		return nil, nil, fmt.Errorf("failed to parse release payload: %w", err)
	}
	return &release, payload, nil
}

// downloadFile streams url into path, reporting progress as it goes.
func (s *Store) downloadFile(url, path, name string, totalHint int64) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	// Large binaries and GGUF files can take a while; no client deadline.
	resp, err := utils.GetHTTPClientWithTimeout(0).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return s.writeStreamSized(resp, path, name, totalHint)
}

// writeStream saves a response body to path, reporting progress under name.
func (s *Store) writeStream(resp *http.Response, path, name string) error {
	return s.writeStreamSized(resp, path, name, -1)
}

func (s *Store) writeStreamSized(resp *http.Response, path, name string, totalHint int64) error {
	total := resp.ContentLength
	if total <= 0 {
		total = totalHint
	}
	if total <= 0 {
		total = -1
	}

	// Download next to the destination and rename, so a failed transfer
	// never leaves a plausible-looking partial file behind.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+name+".partial-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	var downloaded int64
	buf := make([]byte, 128*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				return err
			}
			downloaded += int64(n)
			if s.Progress != nil {
				s.Progress(name, downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ListArtifacts returns the llama-server binaries present in a release dir.
func (s *Store) ListArtifacts(releaseDir string) ([]string, error) {
	entries, err := os.ReadDir(releaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read release directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "llama-server-") {
			out = append(out, filepath.Join(releaseDir, e.Name()))
		}
	}
	return out, nil
}

// ArtifactNameForVariant maps a catalog variant name to its release asset
// prefix: llama-haswell -> llama-server-haswell.
func ArtifactNameForVariant(variant string) string {
	return strings.Replace(variant, "llama-", "llama-server-", 1)
}

// FindArtifact locates the binary for a variant inside a release directory.
// Windows assets carry an .exe suffix; the prefix match covers both.
func (s *Store) FindArtifact(releaseDir, variant string) (string, error) {
	want := ArtifactNameForVariant(variant)
	paths, err := s.ListArtifacts(releaseDir)
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		base := filepath.Base(p)
		if base == want || base == want+".exe" {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no %s artifact in %s", ErrMissingExecutable, want, releaseDir)
}

func dirHasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
