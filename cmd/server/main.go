// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the video plan generation backend server.
//
// This application sets up and runs a web server using the Gin framework. It provides a REST API
// for generating edit plans from creative briefs, retrieving stored plans, and uploading media
// assets. The server is instrumented with OpenTelemetry for logging, tracing, and metrics,
// providing observability into the application's performance.
//
// The main function initializes the application's configuration, sets up logging and telemetry,
// and initializes the application state, including clients for Google Cloud services. It defines
// API routes for plan generation, plan retrieval, signed plan document URLs, and asset uploads.
//
// The server also sets up and manages a background listener for the plan request Pub/Sub topic,
// so plans can be generated asynchronously from queued requests as well as synchronously over
// HTTP.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server, configures routes,
//     initializes services, and handles graceful shutdown.
//   - PlanRouter: Sets up the API routes related to plans, such as generating a plan from a
//     request body, retrieving specific plans, and generating signed URLs for plan documents.
//   - AssetUpload: Configures the API endpoint for handling multipart/form-data asset uploads,
//     saving the uploaded files to a Google Cloud Storage bucket.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/workflow"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/telemetry"
)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, cloud services,
// the web server, API routes, and the background listener. It also handles graceful
// shutdown of the server upon receiving an interrupt signal.
func main() {
	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// Create a new context that can be cancelled. This is the root context for the application.
	ctx, cancel := context.WithCancel(context.Background())
	// Defer the cancel function to be called when main exits, ensuring all child contexts are cancelled.
	defer cancel()

	// Load application configuration from TOML files.
	config := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	// Initialize the application's state, including all necessary service clients.
	InitState(ctx)
	slog.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Add OpenTelemetry middleware to the Gin router to trace incoming requests.
	// This will automatically create spans for each request.
	r.Use(otelgin.Middleware("video-planner-server"))

	// Configure Cross-Origin Resource Sharing (CORS) middleware.
	// Using cors.Default() provides a permissive configuration suitable for development,
	// allowing requests from any origin.
	r.Use(cors.Default())

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	{
		// Register the routes for plan and asset upload functionality within the API group.
		PlanRouter(apiV1)
		AssetUpload(apiV1)
		Dashboard(apiV1)
	}

	// Configure the HTTP server with the address and handler. Plan generation
	// holds the request open through up to three model round trips, so the
	// write timeout is generous.
	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Set up a channel to listen for OS interrupt signals (e.g., Ctrl+C).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	// Block until a signal is received on the quit channel.
	<-quit
	slog.Info("Shutdown Server ...")

	// Create a context with a timeout for the graceful shutdown.
	// This gives active requests 5 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// PlanRouter sets up the API routes for plan-related actions.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the plan routes will be added. This allows
//     nesting routes under a common path prefix (e.g., "/api/v1").
//
// Outputs:
//   - This function does not return any values. It modifies the provided *gin.RouterGroup
//     by adding new route handlers.
//
// This function defines the following endpoints:
//   - POST /plans: Generates an edit plan synchronously from a plan request body.
//   - GET /plans: Lists the most recently generated plans.
//   - GET /plans/:id: Retrieves the full details of a specific plan by its ID.
//   - GET /plans/:id/url: Generates a time-limited, signed URL for downloading the plan document.
//   - GET /plans/requests/:request_id: Retrieves the plan generated for a given request ID.
func PlanRouter(r *gin.RouterGroup) {
	// Group all plan-related routes under the "/plans" path.
	plans := r.Group("/plans")
	{
		// Handler for POST /plans
		// Runs the full generation chain synchronously and returns the finished plan.
		plans.POST("", func(c *gin.Context) {
			body, err := c.GetRawData()
			if err != nil || len(body) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
				return
			}

			// The same chain serves the Pub/Sub trigger, so the body must be
			// a valid plan request document. A quick parse here gives the
			// caller a clean 400 instead of a chain failure.
			var probe model.PlanRequest
			if err := json.Unmarshal(body, &probe); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "malformed plan request: " + err.Error()})
				return
			}

			// Execute the plan generation chain with the raw body as input.
			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(c.Request.Context())
			chainCtx.Add(cor.CtxIn, string(body))
			state.planWorkflow.Execute(chainCtx)

			if chainCtx.HasErrors() {
				for name, e := range chainCtx.GetErrors() {
					log.Printf("plan generation error in %s: %v", name, e)
				}
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "plan generation failed"})
				return
			}

			plan := chainCtx.Get(workflow.GetPlanOutputParamName()).(*model.EditPlan)
			c.JSON(http.StatusOK, plan)
		})

		// Handler for GET /plans?count=<n>
		plans.GET("", func(c *gin.Context) {
			count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
			if err != nil || count <= 0 {
				count = 10
			}
			out, err := state.planService.ListRecent(c, count)
			if err != nil {
				log.Printf("Error listing plans: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /plans/:id
		plans.GET("/:id", func(c *gin.Context) {
			id := c.Param("id")
			out, err := state.planService.Get(c, id)
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /plans/:id/url
		// This endpoint provides a secure, time-limited URL for clients to
		// download the plan document directly from GCS.
		plans.GET("/:id/url", func(c *gin.Context) {
			id := c.Param("id")
			plan, err := state.planService.Get(c, id)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
				return
			}
			if plan.PlanUrl == "" {
				c.JSON(http.StatusNotFound, gin.H{"error": "Plan has no document"})
				return
			}

			// Generate a signed URL valid for 15 minutes for the plan document.
			signedURL, err := state.planService.GenerateSignedURL(c, plan.PlanUrl, 15*time.Minute)
			if err != nil {
				log.Printf("Error generating signed URL: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate download URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})

		// Handler for GET /plans/requests/:request_id
		plans.GET("/requests/:request_id", func(c *gin.Context) {
			requestId := c.Param("request_id")
			out, err := state.planService.GetByRequestId(c, requestId)
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}

// AssetUpload sets up the route for handling media asset uploads.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the upload route will be added.
//
// Outputs:
//   - This function does not return any values. It registers a POST route on the
//     provided router group.
//
// This function configures a POST endpoint at "/uploads" that accepts multipart/form-data.
// It processes one or more files sent under the "files" form field, sniffs each file's
// media type, saves them temporarily to the local disk, and then uploads them to the
// configured asset bucket before deleting the local temporary file. The response lists
// an asset reference for each uploaded file, ready to be placed in a plan request.
func AssetUpload(r *gin.RouterGroup) {
	// Group the upload route under "/uploads".
	upload := r.Group("/uploads")
	{
		// Handler for POST /uploads
		upload.POST("", func(c *gin.Context) {
			// Parse the multipart form from the request.
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			// Get all files associated with the "files" field.
			files := form.File["files"]
			// Get a handle to the configured asset bucket.
			bucket := state.cloud.StorageClient.Bucket(state.config.Storage.AssetBucket)

			refs := make([]*model.AssetRef, 0, len(files))

			// Loop through all the uploaded files.
			for _, file := range files {
				// Define a temporary local path to save the file.
				localPath := filepath.Join(os.TempDir(), file.Filename)
				// Save the uploaded file to the local temporary path.
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				// Read the file content from the local path.
				content, err := os.ReadFile(localPath)
				if err != nil {
					log.Println(err)
					c.Status(http.StatusInternalServerError)
					return
				}

				// Sniff the actual media type from the file's magic bytes
				// rather than trusting the upload's file extension.
				kind, _ := filetype.Match(content)
				mimeType := "application/octet-stream"
				if kind != filetype.Unknown {
					mimeType = kind.MIME.Value
				}

				// Get a writer for the new object in the GCS bucket.
				wc := bucket.Object(file.Filename).NewWriter(c)
				// Set the content type for the GCS object.
				wc.ContentType = mimeType
				// Write the file content to the GCS object.
				if _, err = wc.Write(content); err != nil {
					c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
					return
				}
				// Close the GCS writer to finalize the upload.
				if err := wc.Close(); err != nil {
					log.Printf("failed to close bucket handle: %v\n", err)
				}
				// Remove the temporary local file after successful upload.
				if err := os.Remove(localPath); err != nil {
					log.Printf("failed to remove file from server: %v\n", err)
				}

				// Build the asset reference callers will embed in plan
				// requests. Duration is unknown until the asset is analyzed,
				// so it's left at zero for the caller to fill in.
				refs = append(refs, &model.AssetRef{
					Id:       file.Filename,
					Uri:      "gs://" + state.config.Storage.AssetBucket + "/" + file.Filename,
					MimeType: mimeType,
				})
			}
			// Respond with the asset references for the uploaded files.
			c.JSON(http.StatusOK, refs)
		})
	}
}
