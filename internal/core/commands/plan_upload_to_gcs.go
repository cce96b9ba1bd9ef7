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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command for uploading the finished plan document to Google Cloud Storage.
//
// Logic Flow:
// This is the final step of the plan generation chain. The plan record has
// already been persisted to BigQuery; this command writes the same plan as a
// standalone JSON document to the plan bucket so renderers and callers can
// fetch it without a dataset query.
//
//  1. Marshal the completed plan to JSON.
//  2. Stream the bytes to a GCS object named after the plan ID.
//  3. Record the object's authenticated browser URL on the plan.
package commands

import (
	"encoding/json"
	"fmt"
	"log"

	"cloud.google.com/go/storage"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
)

// PlanUploadToGCS is a command that writes the plan document to the plan
// bucket and records its URL.
type PlanUploadToGCS struct {
	cor.BaseCommand
	client *storage.Client // The GCS client for interacting with the storage service.
	bucket string          // The name of the destination plan bucket.
}

// NewPlanUploadToGCS is the constructor for the PlanUploadToGCS command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: An initialized *storage.Client.
//   - bucket: The name of the plan bucket.
//
// Outputs:
//   - *PlanUploadToGCS: A pointer to the newly instantiated command.
func NewPlanUploadToGCS(name string, client *storage.Client, bucket string) *PlanUploadToGCS {
	return &PlanUploadToGCS{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// ObjectName returns the GCS object name used for a plan document.
func ObjectName(plan *model.EditPlan) string {
	return fmt.Sprintf("plans/%s.json", plan.Id)
}

// Execute contains the core logic for uploading the plan document.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *PlanUploadToGCS) Execute(context cor.Context) {
	plan := context.Get(c.GetInputParam()).(*model.EditPlan)

	// The URL is part of the document, so set it before marshaling. It is the
	// authenticated browser form; callers needing unauthenticated access go
	// through the signed URL endpoint instead.
	objectName := ObjectName(plan)
	plan.PlanUrl = fmt.Sprintf("https://storage.mtls.cloud.google.com/%s/%s", c.bucket, objectName)

	payload, err := json.Marshal(plan)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to marshal plan %s: %w", plan.Id, err))
		return
	}

	// Create a writer for the destination object and stream the document.
	writer := c.client.Bucket(c.bucket).Object(objectName).NewWriter(context.GetContext())
	writer.ContentType = "application/json"
	if _, err := writer.Write(payload); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to write plan %s: %w", plan.Id, err))
		return
	}

	// Closing the writer finalizes the upload. An incomplete close means the
	// object was never created.
	if err := writer.Close(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to close writer for plan %s: %w", plan.Id, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	log.Printf("uploaded plan document gs://%s/%s", c.bucket, objectName)
	context.Add(c.GetOutputParam(), plan)
}
