package prompt

import "fmt"

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a media forensics analyst. Decide whether the attached image is an authentic photograph or was generated or manipulated by AI (deepfake, face swap, diffusion model, GAN). You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object.
- prediction is one of: real, fake, deepfake, unknown. Use deepfake only for manipulated real people; use fake for fully generated media.
- confidence is a number between 0 and 1 expressing how sure you are of the prediction.
- reasoning is at most two short sentences naming the visual evidence.
- If the image cannot be judged, answer unknown with a low confidence.

Schema (example with empty values):
{
  "prediction": "<real|fake|deepfake|unknown>",
  "confidence": 0.0,
  "reasoning": "<string>"
}`
}

// GetUserPrompt builds a compact user message around the file name.
func GetUserPrompt(fileName string) string {
	return fmt.Sprintf("Classify the attached image (file name: %s) and respond with the JSON per schema.", fileName)
}

// Classification matches the schema requested by the system prompt.
type Classification struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}
