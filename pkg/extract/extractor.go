// Copyright 2025 Graphmill
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@graphmill.io
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/graphmill/harvest/pkg/batch"
)

// Document is the unit of work fed to the extractor.
type Document struct {
	ID         string `json:"id"`
	SourceType string `json:"source_type,omitempty"`
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`
	URL        string `json:"url,omitempty"`
}

// Entity is a named thing found in a document.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Relationship links two extracted entities.
type Relationship struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
}

// Extraction is the structured completion expected from the provider.
type Extraction struct {
	Entities       []Entity       `json:"entities"`
	Relationships  []Relationship `json:"relationships"`
	RelevanceScore float64        `json:"relevance_score"`
}

// ScoredDocument is the shard payload: document metadata plus its extraction.
type ScoredDocument struct {
	ID         string         `json:"id"`
	Title      string         `json:"title,omitempty"`
	URL        string         `json:"url,omitempty"`
	SourceType string         `json:"source_type,omitempty"`
	Score      float64        `json:"score"`
	Entities   []Entity       `json:"entities"`
	Relations  []Relationship `json:"relationships"`
}

// maxPromptChars bounds the document text sent per request. Long documents
// are truncated, not split.
const maxPromptChars = 12000

const systemPrompt = `You are an information extraction engine. Given a document, extract named entities and the relationships between them, and rate how relevant the document is to the requested subject on a scale of 0.0 to 1.0.

Respond with ONLY a JSON object, no prose, no markdown fences:
{"entities": [{"name": "...", "type": "..."}], "relationships": [{"source": "...", "target": "...", "type": "..."}], "relevance_score": 0.0}`

// Extractor scores documents through a chat provider. It implements
// batch.Processor.
type Extractor struct {
	provider Provider
	subject  string
	model    string
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(e *Extractor) { e.model = model }
}

// WithLogger sets the extractor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor builds an extractor asking provider to score documents against
// subject (e.g. "independent films", "chess openings").
func NewExtractor(provider Provider, subject string, opts ...Option) *Extractor {
	e := &Extractor{
		provider: provider,
		subject:  subject,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessOne extracts entities from one work item, satisfying
// batch.Processor. The item payload must be a Document; the result payload is
// a ScoredDocument.
func (e *Extractor) ProcessOne(ctx context.Context, item batch.Item) (batch.Result, error) {
	var doc Document
	if err := json.Unmarshal(item.Payload, &doc); err != nil {
		return batch.Result{}, fmt.Errorf("decode document %s: %w", item.ID, err)
	}

	resp, err := e.provider.Chat(ctx, ChatRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: e.userPrompt(doc)},
		},
		Model:       e.model,
		Temperature: 0, // extraction wants determinism, not creativity
	})
	if err != nil {
		return batch.Result{}, fmt.Errorf("%s chat: %w", e.provider.Name(), err)
	}

	extraction, err := ParseExtraction(resp.Message.Content)
	if err != nil {
		return batch.Result{}, fmt.Errorf("document %s: %w", item.ID, err)
	}

	e.logger.Debug("extract.document.scored",
		"id", doc.ID,
		"score", extraction.RelevanceScore,
		"entities", len(extraction.Entities),
		"prompt_tokens", resp.PromptTokens,
		"output_tokens", resp.OutputTokens,
	)

	payload, err := json.Marshal(ScoredDocument{
		ID:         doc.ID,
		Title:      doc.Title,
		URL:        doc.URL,
		SourceType: doc.SourceType,
		Score:      extraction.RelevanceScore,
		Entities:   extraction.Entities,
		Relations:  extraction.Relationships,
	})
	if err != nil {
		return batch.Result{}, fmt.Errorf("encode scored document %s: %w", item.ID, err)
	}

	return batch.Result{Score: extraction.RelevanceScore, Payload: payload}, nil
}

func (e *Extractor) userPrompt(doc Document) string {
	text := doc.Text
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n\n", e.subject)
	if doc.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", doc.Title)
	}
	if doc.SourceType != "" {
		fmt.Fprintf(&sb, "Source: %s\n", doc.SourceType)
	}
	fmt.Fprintf(&sb, "\nDocument:\n%s\n", text)
	return sb.String()
}

// ParseExtraction parses a provider completion into an Extraction. Markdown
// fences and surrounding prose are tolerated; anything without a parseable
// JSON object, or with a relevance score outside [0, 1], is an error.
func ParseExtraction(text string) (*Extraction, error) {
	raw := strings.TrimSpace(text)

	// Models fence their output despite instructions not to.
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if i := strings.LastIndex(raw, "```"); i >= 0 {
			raw = raw[:i]
		}
		raw = strings.TrimSpace(raw)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion: %.80q", text)
	}

	var extraction Extraction
	if err := json.Unmarshal([]byte(raw[start:end+1]), &extraction); err != nil {
		return nil, fmt.Errorf("parse completion: %w", err)
	}
	if extraction.RelevanceScore < 0 || extraction.RelevanceScore > 1 {
		return nil, fmt.Errorf("relevance score %g outside [0, 1]", extraction.RelevanceScore)
	}
	if extraction.Entities == nil {
		extraction.Entities = []Entity{}
	}
	if extraction.Relationships == nil {
		extraction.Relationships = []Relationship{}
	}
	return &extraction, nil
}
