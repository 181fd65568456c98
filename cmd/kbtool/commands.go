// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
	"github.com/swire-renewables/intelligence-assistant/internal/logging"
	"github.com/swire-renewables/intelligence-assistant/internal/scraper"
	"github.com/swire-renewables/intelligence-assistant/internal/search"
	"github.com/swire-renewables/intelligence-assistant/internal/storage"
	"github.com/swire-renewables/intelligence-assistant/internal/uploader"
)

const (
	knowledgeBasePrefix = "knowledge-base"
	azureSearchPrefix   = "azure-search"
	objectSource        = "swire-intelligence-assistant"
)

// app carries what every command needs. Unset fields are filled from the
// config file before a command runs.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
}

func (a *app) init() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		logger, err := logging.New(a.cfg.Logging, "kbtool")
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = logger
	}
	if a.now == nil {
		a.now = time.Now
	}
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kbtool",
		Short: "Swire knowledge base tool",
		Long: `kbtool builds the Swire knowledge base documents, scrapes the company website
and publishes documents to Azure Cognitive Search, object storage and the
local catalog used by the assistant.

Environment variables:
  AZURE_SEARCH_ENDPOINT, AZURE_SEARCH_KEY   search service credentials
  S3_BUCKET, AWS_REGION                      object storage target
  CONFIG_PATH                                configuration file`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the configuration file")

	rootCmd.AddCommand(servicesCmd(a))
	rootCmd.AddCommand(windCmd(a))
	rootCmd.AddCommand(scrapeCmd(a))
	rootCmd.AddCommand(uploadCmd(a))
	rootCmd.AddCommand(catalogCmd(a))

	return rootCmd
}

func servicesCmd(a *app) *cobra.Command {
	var out, markdown string

	cmd := &cobra.Command{
		Use:   "services",
		Short: "Build the Swire service portfolio documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs := knowledge.BuildServiceDocuments(knowledge.ServiceCatalog, a.now())
			batch := knowledge.Batch{Value: docs}
			if err := batch.Validate(); err != nil {
				return err
			}
			if err := batch.WriteFile(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d service documents to %s\n", len(docs), out)

			if markdown != "" {
				content := knowledge.RenderMarkdown("Swire Renewable Energy Services Knowledge Base", docs)
				if err := os.WriteFile(markdown, []byte(content), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", markdown, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote readable copy to %s\n", markdown)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "swire_services_kb.json", "Output file for the upload batch")
	cmd.Flags().StringVar(&markdown, "markdown", "", "Optional markdown file for review")

	return cmd
}

func windCmd(a *app) *cobra.Command {
	var input, out, summary string

	cmd := &cobra.Command{
		Use:   "wind",
		Short: "Convert the wind turbine services knowledge base into search documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := knowledge.ReadWindKnowledgeBase(input)
			if err != nil {
				return err
			}

			now := a.now()
			docs, err := knowledge.BuildWindTurbineDocuments(kb, now)
			if err != nil {
				return err
			}
			batch := knowledge.Batch{Value: docs}
			if err := batch.Validate(); err != nil {
				return err
			}
			if err := batch.WriteFile(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d wind turbine documents to %s\n", len(docs), out)

			if summary != "" {
				uploadSummary := knowledge.UploadSummary(docs, a.cfg.Search.Endpoint, a.cfg.Search.Index, now)
				if err := knowledge.WriteJSON(summary, uploadSummary); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote upload summary to %s\n", summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "wind_turbine_services_kb_final.json", "Wind turbine services knowledge base file")
	cmd.Flags().StringVarP(&out, "out", "o", "azure_wind_services_upload.json", "Output file for the upload batch")
	cmd.Flags().StringVar(&summary, "summary", "", "Optional upload summary file")

	return cmd
}

func scrapeCmd(a *app) *cobra.Command {
	var baseURL, dir, batchFile string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the company website into the knowledge data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baseURL == "" {
				baseURL = a.cfg.Scraper.BaseURL
			}
			if dir == "" {
				dir = a.cfg.Knowledge.DataDir
			}

			data, err := scraper.New(a.cfg.Scraper, a.logger).Scrape(cmd.Context(), baseURL)
			if err != nil {
				return err
			}
			if err := scraper.WriteKB(dir, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scraped %d headings and %d paragraphs into %s\n",
				len(data.Content.Headings), len(data.Content.Paragraphs), dir)

			if batchFile != "" {
				batch := knowledge.Batch{Value: scraper.ToDocuments(data)}
				if err := batch.Validate(); err != nil {
					return err
				}
				if err := batch.WriteFile(batchFile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d documents to %s\n", len(batch.Value), batchFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Website to scrape (defaults to scraper.base_url)")
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (defaults to knowledge.data_dir)")
	cmd.Flags().StringVar(&batchFile, "batch", "", "Optional upload batch built from the scrape")

	return cmd
}

func uploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Publish knowledge documents",
	}

	cmd.AddCommand(uploadSearchCmd(a))
	cmd.AddCommand(uploadStorageCmd(a))

	return cmd
}

func uploadSearchCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Index a document batch in Azure Cognitive Search",
		RunE: func(cmd *cobra.Command, _ []string) error {
			batch, err := knowledge.ReadBatch(file)
			if err != nil {
				return err
			}
			if err := batch.Validate(); err != nil {
				return err
			}

			client, err := search.NewClient(a.cfg.Search, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create search client: %w", err)
			}

			var jobs []uploader.Job
			for i, chunk := range uploader.Chunk(batch.Value, a.cfg.Upload.BatchSize) {
				chunk := chunk
				jobs = append(jobs, uploader.Job{
					Key: fmt.Sprintf("batch-%d", i+1),
					Do: func(ctx context.Context) error {
						result, err := client.IndexDocuments(ctx, chunk)
						if err != nil {
							return err
						}
						if failed := result.FailedKeys(); len(failed) > 0 {
							return fmt.Errorf("documents rejected: %s", strings.Join(failed, ", "))
						}
						return nil
					},
				})
			}

			summary := uploader.New(a.cfg.Upload.Concurrency, a.logger).Run(cmd.Context(), jobs)
			return report(cmd, fmt.Sprintf("%d documents to index %s", len(batch.Value), client.Index()), summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document batch file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func uploadStorageCmd(a *app) *cobra.Command {
	var (
		file        string
		name        string
		azureFormat bool
	)

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Store a wind turbine services knowledge base in object storage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := knowledge.ReadWindKnowledgeBase(file)
			if err != nil {
				return err
			}

			now := a.now()
			kb.StampMetadata(now)
			raw, err := json.MarshalIndent(kb, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode knowledge base: %w", err)
			}

			objects := map[string]objectPayload{
				storage.DatedKey(knowledgeBasePrefix, name, now): {
					body:     raw,
					metadata: map[string]string{"source": objectSource, "category": name, "version": "1.0"},
				},
			}

			if azureFormat {
				docs, err := knowledge.StorageDocuments(kb)
				if err != nil {
					return err
				}
				if err := (knowledge.Batch{Value: docs["documents"]}).Validate(); err != nil {
					return err
				}
				body, err := json.MarshalIndent(docs, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode search documents: %w", err)
				}
				objects[storage.DatedKey(azureSearchPrefix, name, now)] = objectPayload{
					body:     body,
					metadata: map[string]string{"source": objectSource, "format": "azure-cognitive-search", "category": name},
				}
			}

			store, err := storage.NewObjectStore(cmd.Context(), a.cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to create object store: %w", err)
			}

			var jobs []uploader.Job
			for key, payload := range objects {
				key, payload := key, payload
				jobs = append(jobs, uploader.Job{
					Key: key,
					Do: func(ctx context.Context) error {
						location, err := store.PutObject(ctx, key, payload.body, "application/json", payload.metadata)
						if err != nil {
							return err
						}
						a.logger.Info("Object stored", zap.String("location", location))
						return nil
					},
				})
			}

			summary := uploader.New(a.cfg.Upload.Concurrency, a.logger).Run(cmd.Context(), jobs)
			return report(cmd, fmt.Sprintf("%d objects", len(objects)), summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Wind turbine services knowledge base file")
	cmd.Flags().StringVar(&name, "name", "wind-turbine-services", "Object name used in the dated keys")
	cmd.Flags().BoolVar(&azureFormat, "azure-format", true, "Also store the search document format")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

type objectPayload struct {
	body     []byte
	metadata map[string]string
}

func catalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local knowledge catalog",
	}

	var file string
	load := &cobra.Command{
		Use:   "load",
		Short: "Load a document batch into the local catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			batch, err := knowledge.ReadBatch(file)
			if err != nil {
				return err
			}
			if err := batch.Validate(); err != nil {
				return err
			}

			if dir := filepath.Dir(a.cfg.Knowledge.CatalogPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create catalog directory: %w", err)
				}
			}
			catalog, err := knowledge.NewCatalog(a.cfg.Knowledge.CatalogPath)
			if err != nil {
				return err
			}
			defer func() { _ = catalog.Close() }()

			if err := catalog.UpsertAll(cmd.Context(), batch.Value); err != nil {
				return err
			}
			count, err := catalog.Count(cmd.Context())
			if err != nil {
				return err
			}

			a.logger.Info("Catalog loaded",
				zap.String("path", a.cfg.Knowledge.CatalogPath),
				zap.Int("documents", len(batch.Value)),
				zap.Int("total", count))
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d documents into %s (%d total)\n",
				len(batch.Value), a.cfg.Knowledge.CatalogPath, count)
			return nil
		},
	}
	load.Flags().StringVarP(&file, "file", "f", "", "Document batch file")
	_ = load.MarkFlagRequired("file")

	cmd.AddCommand(load)
	return cmd
}

func report(cmd *cobra.Command, what string, summary uploader.Summary) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s: %d succeeded, %d failed in %s\n",
		what, summary.Processed, summary.Failed, summary.Duration.Round(time.Millisecond))
	for _, item := range summary.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", item.Key, item.Error)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d uploads failed", summary.Failed)
	}
	return nil
}
