// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud services.
// This file adapts the quota-aware Gemini model to the recovery layer's
// Generator interface. The adapter is deliberately thin: it concatenates the
// candidate text verbatim (fences, prose and all) because the recovery
// pipeline owns every bit of output cleanup, and it translates the provider's
// usage metadata so sessions can account for the true token cost of repair
// regenerations.
package cloud

import (
	"context"
	"fmt"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
)

// GeminiGenerator adapts a QuotaAwareGenerativeAIModel to recovery.Generator.
type GeminiGenerator struct {
	Model *QuotaAwareGenerativeAIModel
}

// NewGeminiGenerator wraps a quota-aware model for use by recovery sessions.
func NewGeminiGenerator(model *QuotaAwareGenerativeAIModel) *GeminiGenerator {
	return &GeminiGenerator{Model: model}
}

// Generate issues one generation call and returns the raw concatenated text
// plus token usage. Transport failures come back as plain errors; the
// session wraps them in its own taxonomy.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, systemInstructions string) (*recovery.GenerateResult, error) {
	resp, err := g.Model.GenerateContentWithSystem(ctx, NewTextPart(prompt), systemInstructions)
	if err != nil {
		return nil, err
	}

	value := ""
	// The response can have multiple candidates; concatenate every text part
	// without any trimming. Fence and prose removal belongs to the recovery
	// pipeline so its extraction behavior sees the genuine model output.
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				value += fmt.Sprint(part.Text)
			}
		}
	}

	result := &recovery.GenerateResult{Content: value}
	if resp.UsageMetadata != nil {
		result.Usage = &recovery.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return result, nil
}
