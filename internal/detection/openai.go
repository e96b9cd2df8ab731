package detection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/visionclaim/claims-engine/internal/claims"
	"github.com/visionclaim/claims-engine/internal/config"
)

const detectionPrompt = `You are an expert automotive damage assessor. Analyze this vehicle image and provide a detailed damage assessment.

Return your analysis as a JSON object with this exact structure:
{
    "vehicle_detected": true/false,
    "vehicle_type": "sedan/suv/truck/sports/van/other",
    "vehicle_color": "color",
    "damages": [
        {
            "part": "part_name (use snake_case, e.g. front_bumper, rear_fender, hood, door, headlight, taillight, windshield, side_mirror, grille, wheel_rim, rocker_panel, trunk, roof, front_fender, rear_bumper)",
            "damage_type": "scratch/dent/crack/shatter/deformation/paint_damage/structural",
            "severity": "minor/moderate/severe",
            "confidence": 0.0-1.0,
            "description": "brief description of the damage"
        }
    ],
    "overall_severity": "minor/moderate/severe",
    "drivable": true/false,
    "summary": "overall assessment summary"
}

If no vehicle is detected, set vehicle_detected to false and return empty damages array.
Only return the JSON, no other text.`

// OpenAIDetector calls an OpenAI-compatible vision model.
type OpenAIDetector struct {
	client   *openai.Client
	model    string
	fallback Detector
	logger   *slog.Logger
}

// NewOpenAI creates a vision-model detector. API failures fall back to the
// simulated detector rather than failing the analysis.
func NewOpenAI(cfg config.DetectionConfig, logger *slog.Logger) *OpenAIDetector {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIDetector{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		fallback: NewSimulated(),
		logger:   logger,
	}
}

// Detect sends the image to the vision model and parses its JSON reply.
func (d *OpenAIDetector) Detect(ctx context.Context, imagePath string) (*claims.DetectionResult, error) {
	imageURL, err := encodeImage(imagePath)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: detectionPrompt,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		d.logger.Error("Vision model request failed, falling back to simulated detection", "error", err)
		return d.fallback.Detect(ctx, imagePath)
	}

	if len(resp.Choices) == 0 {
		d.logger.Error("Vision model returned no choices, falling back to simulated detection")
		return d.fallback.Detect(ctx, imagePath)
	}

	result, err := parseDetectionResponse(resp.Choices[0].Message.Content)
	if err != nil {
		d.logger.Error("Failed to parse vision model response, falling back to simulated detection", "error", err)
		return d.fallback.Detect(ctx, imagePath)
	}

	return result, nil
}

// parseDetectionResponse unmarshals the model reply, tolerating a markdown
// code fence around the JSON.
func parseDetectionResponse(text string) (*claims.DetectionResult, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var result claims.DetectionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse detection response: %w", err)
	}

	return &result, nil
}

// encodeImage reads the file and builds a data URL for the vision request.
func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".webp":
		mime = "image/webp"
	case ".bmp":
		mime = "image/bmp"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
