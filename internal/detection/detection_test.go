package detection

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionclaim/claims-engine/internal/claims"
	"github.com/visionclaim/claims-engine/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimulatedDetect(t *testing.T) {
	result, err := NewSimulated().Detect(context.Background(), "ignored.jpg")
	require.NoError(t, err)

	assert.True(t, result.VehicleDetected)
	assert.Equal(t, "sedan", result.VehicleType)
	assert.True(t, result.Drivable)
	require.Len(t, result.Damages, 4)
	assert.Equal(t, "front_bumper", result.Damages[0].Part)
	assert.Equal(t, claims.SeveritySevere, result.Damages[1].Severity)
}

func TestNewDetectorProviders(t *testing.T) {
	logger := discardLogger()

	d, err := NewDetector(config.DetectionConfig{Provider: ProviderSimulated}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedDetector{}, d)

	d, err = NewDetector(config.DetectionConfig{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIDetector{}, d)

	// No API key degrades to the simulated detector instead of failing.
	d, err = NewDetector(config.DetectionConfig{Provider: ProviderOpenAI}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedDetector{}, d)

	_, err = NewDetector(config.DetectionConfig{Provider: "gemini"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported detection provider")
}

func TestParseDetectionResponse(t *testing.T) {
	payload := `{"vehicle_detected": true, "vehicle_type": "suv", "damages": [{"part": "hood", "damage_type": "dent", "severity": "minor", "confidence": 0.8}], "drivable": true}`

	tests := []struct {
		name string
		text string
	}{
		{"bare json", payload},
		{"fenced json", "```json\n" + payload + "\n```"},
		{"fence without language", "```\n" + payload + "\n```"},
		{"surrounding whitespace", "\n  " + payload + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDetectionResponse(tt.text)
			require.NoError(t, err)
			assert.True(t, result.VehicleDetected)
			assert.Equal(t, "suv", result.VehicleType)
			require.Len(t, result.Damages, 1)
			assert.Equal(t, "hood", result.Damages[0].Part)
		})
	}
}

func TestParseDetectionResponseRejectsNonJSON(t *testing.T) {
	_, err := parseDetectionResponse("I could not analyze this image.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse detection response")
}

func TestEncodeImage(t *testing.T) {
	dir := t.TempDir()

	jpgPath := filepath.Join(dir, "car.jpg")
	require.NoError(t, os.WriteFile(jpgPath, []byte{0xFF, 0xD8, 0xFF}, 0o644))
	url, err := encodeImage(jpgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	pngPath := filepath.Join(dir, "car.PNG")
	require.NoError(t, os.WriteFile(pngPath, []byte{0x89, 0x50}, 0o644))
	url, err = encodeImage(pngPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	_, err = encodeImage(filepath.Join(dir, "missing.jpg"))
	require.Error(t, err)
}
