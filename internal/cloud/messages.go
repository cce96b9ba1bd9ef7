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

// Package cloud contains data structures and utilities for interacting with
// Google Cloud services. This file defines the context keys and lightweight
// models used to move work between the transport layer (Pub/Sub, HTTP) and
// the plan generation workflow.
//
// Functions:
//   - GetPlanRequestName: Returns a constant key used for storing the parsed
//     plan request in a workflow context.
package cloud

// GetPlanRequestName returns a constant string that is used as a key within
// the Chain of Responsibility (CoR) context. This key allows different
// commands in a workflow to consistently access the `model.PlanRequest`
// being processed.
//
// Outputs:
//   - string: A constant placeholder string "__PLAN_REQUEST__".
func GetPlanRequestName() string {
	return "__PLAN_REQUEST__"
}

// GCSObject is a simplified, internal representation of a Google Cloud
// Storage (GCS) object. It carries the essential identity of an uploaded
// asset between the upload handler and the asset registration path.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object (e.g., "video/mp4").
}
