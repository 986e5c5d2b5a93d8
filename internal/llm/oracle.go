package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")
	thinkRE = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// CompleteJSON asks the provider a question whose answer must conform to a
// JSON schema, and unmarshals the reply into out. Providers with native
// structured output get the schema on the request; for the rest, the schema
// is appended to the last message and the reply is scraped for JSON.
func CompleteJSON(ctx context.Context, p Provider, messages []Message, schema map[string]any, out any) error {
	req := CompletionRequest{
		Messages:    messages,
		Temperature: 0.1,
		MaxTokens:   4096,
	}

	if p.SupportsJSONSchema() {
		req.JSONSchema = schema
	} else {
		req.Messages = appendSchemaInstruction(messages, schema)
	}

	resp, err := p.Complete(ctx, req)
	if err != nil {
		return err
	}

	raw := ExtractJSON(resp.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parsing %s response as JSON: %w", p.Name(), err)
	}
	return nil
}

// appendSchemaInstruction adds the schema contract to the final message.
// A separate system message is avoided because some routed models reject
// multiple system turns.
func appendSchemaInstruction(messages []Message, schema map[string]any) []Message {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return messages
	}

	instruction := "\n\nYou MUST respond with ONLY a valid JSON object (no markdown fences, " +
		"no explanation, no extra text). The JSON must conform to this schema:\n\n" +
		string(schemaJSON) +
		"\n\nDo NOT wrap the JSON in ```json``` or any other formatting. " +
		"Output ONLY the raw JSON object."

	augmented := make([]Message, len(messages))
	copy(augmented, messages)
	if len(augmented) > 0 {
		last := &augmented[len(augmented)-1]
		last.Content += instruction
	}
	return augmented
}

// ExtractJSON pulls raw JSON out of a model reply that may carry
// <think> reasoning blocks, markdown fences, or surrounding prose.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(thinkRE.ReplaceAllString(text, ""))

	if m := fenceRE.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start != -1 && end > start {
			return text[start : end+1]
		}
	}

	// Let the JSON decoder produce the error.
	return text
}
