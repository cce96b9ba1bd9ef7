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

package recovery

import "context"

// TokenUsage carries the token accounting reported by the model provider for
// a single generation call. Sessions aggregate these across attempts so the
// true cost of a recovered value (including repair regenerations) is visible.
type TokenUsage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}

// GenerateResult is the output of a single generation call: the raw text the
// model produced plus its token usage (nil when the provider reports none).
type GenerateResult struct {
	Content string
	Usage   *TokenUsage
}

// Generator abstracts the generative model behind the recovery session. The
// production implementation wraps a quota-aware Gemini model; tests substitute
// scripted fakes that emit malformed output on demand.
//
// Generate issues one model call. A non-nil error means the call itself
// failed (transport, auth, provider) and is distinct from the model producing
// malformed content, which is a successful call whose Content the session
// must then recover.
type Generator interface {
	Generate(ctx context.Context, prompt string, systemInstructions string) (*GenerateResult, error)
}
