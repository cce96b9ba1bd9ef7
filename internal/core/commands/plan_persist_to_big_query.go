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
// command for persisting a generated edit plan to BigQuery.
package commands

import (
	"fmt"
	"log"

	"cloud.google.com/go/bigquery"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
)

// PlanToBigQuery is a command that writes the completed EditPlan record to
// the plan table via the BigQuery streaming insert API.
type PlanToBigQuery struct {
	cor.BaseCommand
	bigqueryClient *bigquery.Client // The client for interacting with the BigQuery service.
	datasetName    string           // The name of the target BigQuery dataset.
	tableName      string           // The name of the target plan table within the dataset.
	planParam      string           // The context key where the completed plan is expected.
}

// NewPlanToBigQuery is the constructor for the PlanToBigQuery command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - bigqueryClient: An initialized BigQuery client.
//   - datasetName: The name of the target dataset.
//   - tableName: The name of the plan table.
//   - planParam: The context key holding the completed *model.EditPlan.
//
// Outputs:
//   - *PlanToBigQuery: A pointer to the newly instantiated command.
func NewPlanToBigQuery(
	name string,
	bigqueryClient *bigquery.Client,
	datasetName string,
	tableName string,
	planParam string) *PlanToBigQuery {
	return &PlanToBigQuery{
		BaseCommand:    *cor.NewBaseCommand(name),
		bigqueryClient: bigqueryClient,
		datasetName:    datasetName,
		tableName:      tableName,
		planParam:      planParam,
	}
}

// IsExecutable checks if the necessary data is present in the context before
// execution. This command depends on the completed plan rather than the
// previous command's output parameter.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True if the plan object exists in the context.
func (p *PlanToBigQuery) IsExecutable(context cor.Context) bool {
	return context.Get(p.planParam) != nil
}

// Execute contains the core logic for persisting the plan.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (p *PlanToBigQuery) Execute(context cor.Context) {
	plan := context.Get(p.planParam).(*model.EditPlan)

	// Get a handle to the target table and its streaming inserter.
	inserter := p.bigqueryClient.Dataset(p.datasetName).Table(p.tableName).Inserter()

	log.Printf("persisting plan %s for request %s", plan.Id, plan.RequestId)
	if err := inserter.Put(context.GetContext(), plan); err != nil {
		p.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(p.GetName(), fmt.Errorf("failed to insert plan %s: %w", plan.Id, err))
		return
	}

	p.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(p.GetOutputParam(), plan)
}
