package tui

import (
	"encoding/base64"
	"fmt"
	"os"
)

// maxAudioSize caps attachments; the backend rejects anything larger anyway.
const maxAudioSize = 10 * 1024 * 1024

// EncodeAudioFile reads a voice-note file and encodes it for the send
// request. An empty path yields an empty attachment.
func EncodeAudioFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	if info.Size() > maxAudioSize {
		return "", fmt.Errorf("audio file too large: %d bytes (max %d)", info.Size(), maxAudioSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
