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

// Package services_test contains the test suite for the services package.
// This file specifically tests the functionality of the PlanService.
package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/services"
	test "github.com/mosaicvideo/gcp-go-video-planner/internal/testutil"
	"github.com/zeebo/assert"
)

// TestPlanQueriesBindParameters verifies that every caller-supplied value in
// the plan lookup queries is a named bind parameter rather than text spliced
// into the SQL. The single remaining format verb is the table identifier,
// which BigQuery cannot bind.
func TestPlanQueriesBindParameters(t *testing.T) {
	assert.True(t, strings.Contains(services.QryFindPlanById, "@id"))
	assert.True(t, strings.Contains(services.QryFindPlanByRequestId, "@request_id"))
	assert.True(t, strings.Contains(services.QryListRecentPlans, "@max_results"))

	for _, qry := range []string{
		services.QryFindPlanById,
		services.QryFindPlanByRequestId,
		services.QryListRecentPlans,
	} {
		assert.Equal(t, 1, strings.Count(qry, "%"))
	}
}

// TestPlanService is an integration test for the read path of the PlanService.
// It initializes a full application stack (configuration, cloud clients), then
// creates an instance of the PlanService and lists recent plans against a live
// BigQuery backend, asserting that the operation completes without errors.
//
// Inputs:
//   - t: The testing framework's test handler.
func TestPlanService(t *testing.T) {
	// Create a new context with a cancel function. This allows us to gracefully
	// manage the lifecycle of the cloud clients and any background operations.
	ctx, cancel := context.WithCancel(context.Background())
	// The defer statement ensures that cancel() is called when the function exits,
	// which is crucial for releasing resources and preventing leaks.
	defer cancel()

	// Load the application configuration from .toml files using a test helper.
	// This helper sets the necessary environment variables to load test-specific configs.
	config := test.GetConfig()

	// Initialize all necessary Google Cloud service clients (Storage, Pub/Sub, GenAI, BigQuery)
	// based on the loaded configuration. This creates the 'live' environment for the test.
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	// Use a test helper to fail the test immediately if client initialization fails.
	test.HandleErr(err, t)
	// Ensure that all client connections are closed when the test function completes.
	defer cloudClients.Close()

	// Retrieve a specific generative AI model from the initialized clients.
	// While not directly used in this test, this confirms that the agent models
	// were loaded correctly from the configuration.
	genModel := cloudClients.AgentModels["creative-flash"]
	assert.NotNil(t, genModel)

	// Instantiate the PlanService with its dependencies: the BigQuery client,
	// the storage and IAM clients for signing, and the names of the dataset
	// and plan table to query.
	planService := &services.PlanService{
		BigqueryClient: cloudClients.BigQueryClient,
		StorageClient:  cloudClients.StorageClient,
		IAMClient:      cloudClients.IAMClient,
		SignerEmail:    config.Application.SignerServiceAccountEmail,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		PlanTable:      config.BigQueryDataSource.PlanTable,
	}

	// Execute the method under test: ListRecent. This queries the plan table
	// for the 5 most recently created plans.
	out, err := planService.ListRecent(ctx, 5)

	// Perform a basic check for an error. If an error occurred, the test fails.
	if err != nil {
		t.Error(err)
	}
	assert.Nil(t, err)

	// If the listing is successful, iterate through the results and print them.
	// This is useful for debugging and manually verifying stored plans during
	// development.
	for _, plan := range out {
		fmt.Printf("%s - %s (%0.1fs)\n", plan.Id, plan.Title, plan.Structure.TotalDuration)
	}
}
