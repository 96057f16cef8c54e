package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// JudgmentResponse is the structured output requested from the model for a
// single comment. Field values are normalized afterwards; the schema only
// pins the shape.
type JudgmentResponse struct {
	Sentiment       string   `json:"sentiment" jsonschema_description:"Overall sentiment label: positive, neutral or negative"`
	SentimentScore  float64  `json:"sentiment_score" jsonschema_description:"Confidence for the sentiment label, between 0.0 and 1.0"`
	Themes          []string `json:"themes" jsonschema_description:"Up to three short reusable theme labels"`
	Issues          []string `json:"issues" jsonschema_description:"Up to three concrete problems mentioned, empty when none"`
	IssuePriority   string   `json:"issue_priority" jsonschema_description:"alta, media or baja when issues exist, otherwise empty"`
	FeatureRequests []string `json:"feature_requests" jsonschema_description:"Up to three actionable suggestions, empty when none"`
}

// generateSchema builds a JSON schema for T suitable for strict structured
// outputs: no $ref indirection, no additional properties.
func generateSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(&v)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling schema: %w", err)
	}

	ensureStrictCompliance(m)
	return m, nil
}

// ensureStrictCompliance walks the schema and enforces the constraints the
// structured-outputs API requires: every object lists all properties as
// required and forbids additional ones.
func ensureStrictCompliance(schema map[string]any) {
	if typ, ok := schema["type"].(string); ok && typ == "object" {
		schema["additionalProperties"] = false

		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			schema["required"] = required

			for _, prop := range props {
				if propMap, ok := prop.(map[string]any); ok {
					ensureStrictCompliance(propMap)
				}
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		ensureStrictCompliance(items)
	}
	if defs, ok := schema["$defs"].(map[string]any); ok {
		for _, def := range defs {
			if defMap, ok := def.(map[string]any); ok {
				ensureStrictCompliance(defMap)
			}
		}
	}
}

// decodeModelJSON unmarshals model output into v, tolerating prose around
// the JSON object by retrying on the outermost braces.
func decodeModelJSON(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	start := -1
	end := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '}' {
			end = i
			break
		}
	}
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}
