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
// This file, `queries.go`, centralizes all the BigQuery SQL query strings used
// by the application's services. Storing queries as constants in a dedicated
// file improves maintainability, readability, and reusability. The single `%s`
// format verb in each query receives the fully qualified table name, which
// BigQuery cannot bind as a query parameter; every caller-supplied value is
// bound as a named parameter (`@id`, `@request_id`, `@max_results`) instead of
// being spliced into the SQL text, since plan and request IDs arrive from the
// URL path.
package services

const (
	// QryFindPlanById defines a lookup query to retrieve a complete edit plan
	// record from the plan table using its unique ID. Streaming inserts can
	// produce duplicates when a request is reprocessed, so the query keeps only
	// the most recent record for the ID.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the plan table.
	// - `@id`: The unique ID of the plan to find (bound query parameter).
	QryFindPlanById = "SELECT * FROM `%s` WHERE id = @id ORDER BY create_date DESC LIMIT 1"

	// QryFindPlanByRequestId looks up the plan generated for a given request.
	// Plan IDs derive deterministically from request IDs, but callers that only
	// hold the request ID can use this query directly.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the plan table.
	// - `@request_id`: The originating request ID (bound query parameter).
	QryFindPlanByRequestId = "SELECT * FROM `%s` WHERE request_id = @request_id ORDER BY create_date DESC LIMIT 1"

	// QryListRecentPlans returns the most recently created plans, newest first,
	// for the dashboard listing endpoint.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the plan table.
	// - `@max_results`: The maximum number of plans to return (bound query parameter).
	QryListRecentPlans = "SELECT * FROM `%s` ORDER BY create_date DESC LIMIT @max_results"
)
