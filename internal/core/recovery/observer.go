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

import "log/slog"

// Observer receives the discrete diagnostic events of a recovery session.
// Implementations must be cheap and must not block; the session calls them
// inline. Injecting the sink keeps the recovery core free of any direct
// output dependency, so services route events into structured logs while
// tests capture them for assertions.
type Observer interface {
	// AttemptStarted fires before the generation call of attempt index
	// (1-based).
	AttemptStarted(index int)
	// AttemptFailed fires after an attempt's pipeline rejects the output.
	// kind is the failure class name, excerpt a truncated sample of the raw
	// output.
	AttemptFailed(index int, kind string, err error, excerpt string)
	// SessionFinished fires once per session with the terminal outcome.
	SessionFinished(attempts int, succeeded bool)
}

// SlogObserver is the default Observer; it writes each event as a structured
// log record through the supplied logger.
type SlogObserver struct {
	Logger *slog.Logger
}

// NewSlogObserver wires an observer to logger, defaulting to slog.Default().
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{Logger: logger}
}

func (o *SlogObserver) AttemptStarted(index int) {
	o.Logger.Debug("recovery attempt started", "attempt", index)
}

func (o *SlogObserver) AttemptFailed(index int, kind string, err error, excerpt string) {
	o.Logger.Warn("recovery attempt failed",
		"attempt", index,
		"kind", kind,
		"error", err.Error(),
		"excerpt", excerpt)
}

func (o *SlogObserver) SessionFinished(attempts int, succeeded bool) {
	if succeeded {
		o.Logger.Info("recovery session succeeded", "attempts", attempts)
		return
	}
	o.Logger.Error("recovery session exhausted", "attempts", attempts)
}

// nopObserver backs sessions constructed without an explicit sink.
type nopObserver struct{}

func (nopObserver) AttemptStarted(int)                     {}
func (nopObserver) AttemptFailed(int, string, error, string) {}
func (nopObserver) SessionFinished(int, bool)              {}
