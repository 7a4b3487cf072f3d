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

// Package extract scores documents against a subject using a chat-completion
// provider, returning structured entities, relationships, and a relevance
// score per document.
//
// # Supported Providers
//
//   - Ollama: local models, no API key required (default)
//   - OpenAI: GPT-4o-mini and OpenAI-compatible APIs
//   - Anthropic: Claude models
//   - Mock: deterministic hash-derived scores for testing and dry runs
//
// # Quick Start
//
// Build a provider and wrap it in an Extractor:
//
//	provider, err := extract.NewProvider(extract.ProviderConfig{
//	    Type:   "openai",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	extractor := extract.NewExtractor(provider, "independent films")
//
// The Extractor implements batch.Processor, so it plugs directly into a
// batch.Runner for checkpointed, concurrent processing of a document list.
package extract
