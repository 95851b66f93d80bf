package scanning

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
)

const codeFence = "```"

// ParseError reports a model response that was not a usable JSON array.
// Raw holds the response exactly as the model returned it.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StripCodeFence removes markdown code fences the model may wrap around its JSON
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)

	start := strings.Index(text, codeFence)
	if start == -1 {
		return text
	}

	// Drop the opening fence and its language tag, e.g. ```json
	body := text[start+len(codeFence):]
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}

	if end := strings.LastIndex(body, codeFence); end != -1 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

// ReduceResponse turns raw model output into book detections.
// The model's merge of duplicates is trusted; only the shape is checked.
func ReduceResponse(raw string) ([]models.BookDetection, error) {
	cleaned := StripCodeFence(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	items, ok := doc.([]any)
	if !ok {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("expected a JSON array, got %s", jsonKind(doc))}
	}

	books := make([]models.BookDetection, 0, len(items))
	for i, item := range items {
		book, err := toDetection(item)
		if err != nil {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		books = append(books, book)
	}

	return books, nil
}

func toDetection(item any) (models.BookDetection, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return models.BookDetection{}, fmt.Errorf("expected an object, got %s", jsonKind(item))
	}

	title, ok := obj["title"].(string)
	if !ok {
		return models.BookDetection{}, fmt.Errorf("missing or non-string title")
	}

	book := models.BookDetection{Title: title, Sources: []string{}}

	switch author := obj["author"].(type) {
	case nil:
	case string:
		book.Author = author
	case []any:
		book.Author = strings.Join(stringsOf(author), ", ")
	default:
		slog.Debug("Ignoring author of unexpected type", "title", title, "type", jsonKind(author))
	}

	switch sources := obj["sources"].(type) {
	case nil:
	case string:
		book.Sources = append(book.Sources, sources)
	case []any:
		book.Sources = append(book.Sources, stringsOf(sources)...)
	default:
		slog.Debug("Ignoring sources of unexpected type", "title", title, "type", jsonKind(sources))
	}

	return book, nil
}

// stringsOf keeps the string entries of a JSON array and drops the rest
func stringsOf(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
