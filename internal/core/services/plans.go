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

// Package services contains the business logic for interacting with data sources.
// This file, `plans.go`, defines the PlanService, which is responsible for
// retrieving generated edit plans from BigQuery and producing secure,
// time-limited URLs for the plan documents stored in Google Cloud Storage (GCS).
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
	"google.golang.org/api/iterator"
)

// PlanService is a struct that encapsulates the clients and configuration
// needed to perform plan-related read operations. It acts as a data access
// layer, abstracting the details of interacting with BigQuery and GCS.
type PlanService struct {
	BigqueryClient *bigquery.Client                  // Client for interacting with Google BigQuery.
	StorageClient  *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient      *credentials.IamCredentialsClient // Client for interacting with IAM, used for signing URLs.
	SignerEmail    string                            // The service account email used to sign URLs.
	DatasetName    string                            // The name of the BigQuery dataset (e.g., "planner_ds").
	PlanTable      string                            // The name of the BigQuery table containing plan records.
}

// GetFQN (Get Fully Qualified Name) returns the complete, queryable name for
// the plan table in BigQuery, formatted with dots instead of colons.
// Example: `gcp-project-id.planner_ds.plans`
//
// Outputs:
//   - string: The fully qualified table name.
func (s *PlanService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.PlanTable).FullyQualifiedName()
	// Replace the colon with a period for compatibility with standard SQL queries.
	return strings.Replace(fqn, ":", ".", -1)
}

// Get retrieves a single edit plan from BigQuery based on its unique ID.
//
// Inputs:
//   - ctx: The context for the request, used for cancellation and tracing.
//   - id: The unique identifier of the plan to retrieve.
//
// Outputs:
//   - *model.EditPlan: A pointer to the retrieved plan.
//   - error: An error if the query fails or no plan is found.
func (s *PlanService) Get(ctx context.Context, id string) (plan *model.EditPlan, err error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindPlanById, s.GetFQN()))
	// The ID comes from the request path; bind it rather than splicing it
	// into the SQL text.
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return plan, err
	}
	// The query limits to one row; a Done from the first Next means the plan
	// does not exist.
	plan = &model.EditPlan{}
	err = itr.Next(plan)
	if err == iterator.Done {
		return nil, fmt.Errorf("plan %s not found", id)
	}
	return plan, err
}

// GetByRequestId retrieves the plan generated for a given request ID.
//
// Inputs:
//   - ctx: The context for the request.
//   - requestId: The ID of the originating plan request.
//
// Outputs:
//   - *model.EditPlan: A pointer to the retrieved plan.
//   - error: An error if the query fails or no plan exists for the request.
func (s *PlanService) GetByRequestId(ctx context.Context, requestId string) (plan *model.EditPlan, err error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindPlanByRequestId, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "request_id", Value: requestId}}
	itr, err := q.Read(ctx)
	if err != nil {
		return plan, err
	}
	plan = &model.EditPlan{}
	err = itr.Next(plan)
	if err == iterator.Done {
		return nil, fmt.Errorf("no plan for request %s", requestId)
	}
	return plan, err
}

// ListRecent returns the most recently created plans, newest first.
//
// Inputs:
//   - ctx: The context for the request.
//   - maxResults: The maximum number of plans to return.
//
// Outputs:
//   - []*model.EditPlan: A slice of plans, possibly empty.
//   - error: An error if the query or row scanning fails.
func (s *PlanService) ListRecent(ctx context.Context, maxResults int) (out []*model.EditPlan, err error) {
	// Initialize the output slice to ensure it's not nil, even if no results are found.
	out = make([]*model.EditPlan, 0)

	q := s.BigqueryClient.Query(fmt.Sprintf(QryListRecentPlans, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "max_results", Value: maxResults}}
	itr, err := q.Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}

	// Iterate through all the rows returned by BigQuery.
	for {
		var plan = &model.EditPlan{}
		err := itr.Next(plan)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, plan)
	}

	return out, nil
}

// GenerateSignedURL creates a time-limited, secure URL to access a private GCS
// object. This allows clients to download a plan document directly from GCS
// without needing their own credentials. The URL is signed using the
// credentials of the service account specified in `s.SignerEmail`, via the IAM
// Credentials API, so no local key files are required.
//
// Inputs:
//   - ctx: The context for the request.
//   - gcsURI: The URI of the GCS object (e.g., "https://storage.mtls.cloud.google.com/bucket/plans/id.json").
//   - expires: The duration for which the URL will be valid.
//
// Outputs:
//   - string: The generated signed URL.
//   - error: An error if parsing the URI or signing the URL fails.
func (s *PlanService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error) {
	// ---- 1. Parse the GCS URI ----
	// The full URI needs to be broken down into its bucket and object components.
	// Example URI: https://storage.mtls.cloud.google.com/my-bucket/plans/my-plan.json
	prefix := "https://storage.mtls.cloud.google.com/"
	if !strings.HasPrefix(gcsURI, prefix) {
		return "", fmt.Errorf("invalid GCS URI format: %s", gcsURI)
	}
	// Remove the prefix to get "my-bucket/plans/my-plan.json".
	path := strings.TrimPrefix(gcsURI, prefix)
	// Split the remaining path by the first slash.
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid GCS URI: unable to determine bucket and object from %s", gcsURI)
	}
	bucketName := parts[0]
	objectName := parts[1]

	// ---- 2. Define Signing Options ----
	// Configure the parameters for the V4 signing process. The SignBytes
	// function delegates the actual signature to the IAM Credentials API under
	// the configured service account.
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4, // Use the modern and more secure V4 signing scheme.
		Method:         "GET",                   // The URL will only be valid for GET requests.
		Expires:        time.Now().Add(expires), // Set the expiration time.
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	// ---- 3. Generate and Return the URL ----
	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucketName, objectName, err)
	}
	return u, nil
}
