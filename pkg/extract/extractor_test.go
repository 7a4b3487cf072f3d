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
	"strings"
	"testing"

	"github.com/graphmill/harvest/pkg/batch"
)

func docItem(t *testing.T, doc Document) batch.Item {
	t.Helper()
	payload, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return batch.Item{ID: doc.ID, Payload: payload}
}

func fixedResponse(content string) *MockProvider {
	return &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			return &ChatResponse{Message: Message{Role: "assistant", Content: content}}, nil
		},
	}
}

func TestExtractor_Process(t *testing.T) {
	provider := fixedResponse(`{
		"entities": [{"name": "Moonrise Kingdom", "type": "film"}],
		"relationships": [{"source": "Moonrise Kingdom", "target": "Wes Anderson", "type": "directed_by"}],
		"relevance_score": 0.85
	}`)

	ex := NewExtractor(provider, "independent films")
	res, err := ex.ProcessOne(context.Background(), docItem(t, Document{
		ID:    "doc-1",
		Title: "Moonrise Kingdom review",
		Text:  "A 2012 film by Wes Anderson...",
	}))
	if err != nil {
		t.Fatalf("ProcessOne error = %v", err)
	}
	if res.Score != 0.85 {
		t.Errorf("Score = %g, want 0.85", res.Score)
	}

	var scored ScoredDocument
	if err := json.Unmarshal(res.Payload, &scored); err != nil {
		t.Fatalf("payload should be a ScoredDocument: %v", err)
	}
	if scored.ID != "doc-1" || scored.Score != 0.85 {
		t.Errorf("scored = %+v", scored)
	}
	if len(scored.Entities) != 1 || scored.Entities[0].Name != "Moonrise Kingdom" {
		t.Errorf("entities = %+v", scored.Entities)
	}
	if len(scored.Relations) != 1 {
		t.Errorf("relationships = %+v", scored.Relations)
	}
}

func TestExtractor_PromptCarriesSubjectAndDocument(t *testing.T) {
	var seen ChatRequest
	provider := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			seen = req
			return &ChatResponse{Message: Message{Role: "assistant", Content: `{"entities":[],"relationships":[],"relevance_score":0.1}`}}, nil
		},
	}

	ex := NewExtractor(provider, "chess openings", WithModel("llama3"))
	_, err := ex.ProcessOne(context.Background(), docItem(t, Document{
		ID:    "doc-9",
		Title: "Sicilian Defence",
		Text:  "1.e4 c5 is the most popular response to e4.",
	}))
	if err != nil {
		t.Fatalf("ProcessOne error = %v", err)
	}

	if seen.Model != "llama3" {
		t.Errorf("model = %q, want llama3", seen.Model)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", seen.Messages)
	}
	user := seen.Messages[1].Content
	if !strings.Contains(user, "chess openings") {
		t.Error("user prompt should name the subject")
	}
	if !strings.Contains(user, "Sicilian Defence") || !strings.Contains(user, "1.e4 c5") {
		t.Error("user prompt should carry the document")
	}
}

func TestExtractor_TruncatesLongDocuments(t *testing.T) {
	var promptLen int
	provider := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			promptLen = len(req.Messages[1].Content)
			return &ChatResponse{Message: Message{Role: "assistant", Content: `{"entities":[],"relationships":[],"relevance_score":0.5}`}}, nil
		},
	}

	ex := NewExtractor(provider, "anything")
	_, err := ex.ProcessOne(context.Background(), docItem(t, Document{
		ID:   "doc-big",
		Text: strings.Repeat("x", 3*maxPromptChars),
	}))
	if err != nil {
		t.Fatalf("ProcessOne error = %v", err)
	}
	if promptLen > maxPromptChars+1024 {
		t.Errorf("prompt length %d, want at most maxPromptChars plus framing", promptLen)
	}
}

func TestExtractor_BadPayload(t *testing.T) {
	ex := NewExtractor(&MockProvider{}, "anything")
	_, err := ex.ProcessOne(context.Background(), batch.Item{ID: "doc-bad", Payload: []byte("not json")})
	if err == nil || !strings.Contains(err.Error(), "decode document") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestExtractor_ProviderError(t *testing.T) {
	provider := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	ex := NewExtractor(provider, "anything")
	_, err := ex.ProcessOne(context.Background(), docItem(t, Document{ID: "doc-1", Text: "text"}))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		score   float64
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"entities":[],"relationships":[],"relevance_score":0.7}`,
			score: 0.7,
		},
		{
			name:  "fenced json",
			input: "```json\n{\"entities\":[],\"relationships\":[],\"relevance_score\":0.3}\n```",
			score: 0.3,
		},
		{
			name:  "surrounding prose",
			input: `Here is the extraction: {"entities":[],"relationships":[],"relevance_score":1} Hope that helps!`,
			score: 1,
		},
		{
			name:    "no object",
			input:   "I could not process this document.",
			wantErr: true,
		},
		{
			name:    "malformed json",
			input:   `{"entities": [,]}`,
			wantErr: true,
		},
		{
			name:    "score above one",
			input:   `{"entities":[],"relationships":[],"relevance_score":3.5}`,
			wantErr: true,
		},
		{
			name:    "negative score",
			input:   `{"entities":[],"relationships":[],"relevance_score":-0.1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := ParseExtraction(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExtraction error = %v", err)
			}
			if ext.RelevanceScore != tt.score {
				t.Errorf("score = %g, want %g", ext.RelevanceScore, tt.score)
			}
			if ext.Entities == nil || ext.Relationships == nil {
				t.Error("entities and relationships should never be nil")
			}
		})
	}
}
