package harness

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// Default model used by the compatibility suite. Small enough to download in
// seconds but a real GGUF that llama-server will actually load.
const (
	DefaultModelRepo = "ggml-org/models"
	DefaultModelFile = "tinyllamas/stories260K.gguf"
)

// EnsureModel downloads file from a Hugging Face repo into ModelsDir unless a
// copy already exists, and returns the local path.
func (s *Store) EnsureModel(repo, file string) (string, error) {
	local := filepath.Join(s.ModelsDir, repo, filepath.FromSlash(file))
	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		utils.LogDebug(fmt.Sprintf("Using cached model %s", local))
		return local, nil
	}

	if err := utils.EnsureDir(filepath.Dir(local)); err != nil {
		return "", err
	}

	base := s.HFBase
	if base == "" {
		base = "https://huggingface.co"
	}
	url := fmt.Sprintf("%s/%s/resolve/main/%s", base, repo, file)
	name := file
	if idx := strings.LastIndex(file, "/"); idx >= 0 {
		name = file[idx+1:]
	}
	if err := s.downloadModelFile(url, local, name); err != nil {
		return "", fmt.Errorf("failed to download model %s/%s: %w", repo, file, err)
	}
	return local, nil
}

func (s *Store) downloadModelFile(url, path, name string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token := os.Getenv("HF_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := utils.GetHTTPClientWithTimeout(0).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("access denied (status %d); gated models need HF_TOKEN set", resp.StatusCode)
	default:
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return s.writeStream(resp, path, name)
}
