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
// This file implements a wrapper around the standard Generative AI client.
// This wrapper uses the Decorator design pattern to add extra functionality
// to an existing object without altering its code. Specifically, it adds
// rate limiting and a transient-failure retry mechanism to the Generative AI
// model.
//
// Why this is important:
//   - Rate Limiting: Services like Vertex AI have quotas on how many requests
//     you can make per minute. This wrapper prevents the application from
//     exceeding those limits, which would otherwise result in errors.
//   - Retry Logic: Network requests can sometimes fail for transient reasons.
//     The wrapper automatically retries a failed request, making the
//     application more resilient. Note that this retry covers TRANSPORT
//     failures only; malformed model OUTPUT is handled one layer up by the
//     recovery session, which has its own attempt budget.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: A struct that wraps the genai model handle
//     and adds a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: A constructor to create a new instance of the wrapped model.
//   - GenerateContent: An overridden method that intercepts calls to the AI model
//     to enforce rate limiting and retries.
//   - GenerateContentWithSystem: Same call with a per-request system
//     instruction override.
package cloud

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// MaxTransportRetries is the maximum number of times a failed API call is
// retried before the error is surfaced to the caller.
const MaxTransportRetries = 3

// transportRetryBackoff is the pause between transport retries.
var transportRetryBackoff = 10 * time.Second

// QuotaAwareGenerativeAIModel is a decorator struct that wraps the generative
// model handle to add rate-limiting capabilities. Calls pass through the rate
// limiter before reaching the service, so concurrent workflows share one
// quota budget per configured model.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The generation settings (temperature, tokens, system instructions) applied to every call.
	ModelName               string                       // The Vertex AI model identifier, e.g. "gemini-2.0-flash".
	ModelHandle             *genai.Models                // The underlying genai model handle the calls are issued through.
	RateLimit               *rate.Limiter                // A rate limiter to control request frequency.
}

// NewQuotaAwareModel is a constructor function that creates a new
// QuotaAwareGenerativeAIModel. It takes the generation config, model name and
// handle, plus a rate limit (in requests per second), and returns the
// enhanced, quota-aware model.
//
// Inputs:
//   - config: The *genai.GenerateContentConfig applied to every call.
//   - name: The Vertex AI model identifier.
//   - handle: The *genai.Models handle calls are issued through.
//   - requestsPerSecond: The maximum number of API calls allowed per second.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		// Allows a burst of `requestsPerSecond` events and replenishes the
		// token bucket once per second.
		RateLimit: rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateContent issues a generation call with the wrapper's standing
// configuration, honoring the rate limit and retrying transient failures.
//
// Inputs:
//   - ctx: The context for the request; cancellation aborts both the rate
//     limiter wait and any pending retry.
//   - content: The multi-modal prompt content.
//
// Outputs:
//   - *genai.GenerateContentResponse: The response from the AI model if successful.
//   - error: An error if the request fails after all retries.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	return q.generate(ctx, content, q.GenerativeContentConfig)
}

// GenerateContentWithSystem issues a generation call with a per-request
// system instruction, leaving the wrapper's standing configuration untouched.
// An empty system string falls back to the standing configuration.
func (q *QuotaAwareGenerativeAIModel) GenerateContentWithSystem(ctx context.Context, content []*genai.Content, system string) (*genai.GenerateContentResponse, error) {
	if system == "" {
		return q.generate(ctx, content, q.GenerativeContentConfig)
	}
	// Shallow-copy the standing config and swap only the system instruction.
	cfg := *q.GenerativeContentConfig
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	return q.generate(ctx, content, &cfg)
}

// generate performs the rate-limited, retried call.
func (q *QuotaAwareGenerativeAIModel) generate(ctx context.Context, content []*genai.Content, cfg *genai.GenerateContentConfig) (resp *genai.GenerateContentResponse, err error) {
	for attempt := 0; attempt <= MaxTransportRetries; attempt++ {
		// Block until the limiter grants a token or the context is canceled.
		if err = q.RateLimit.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, cfg)
		if err == nil {
			return resp, nil
		}
		if attempt < MaxTransportRetries {
			// Give the service time to recover before the next try.
			select {
			case <-time.After(transportRetryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("generation failed after %d retries: %w", MaxTransportRetries, err)
}
