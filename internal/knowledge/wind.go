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

package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	windCategory = "wind_turbine_services"
	windSource   = "Swire Intelligence Assistant"

	// DefaultIndexName is the search index the wind documents are uploaded to
	DefaultIndexName = "swire-wind-services"
)

// WindKnowledgeBase is the curated wind turbine services file
type WindKnowledgeBase struct {
	Services map[string]json.RawMessage `json:"wind_turbine_services_comprehensive"`
	Metadata map[string]any             `json:"metadata,omitempty"`
}

// ReadWindKnowledgeBase loads a wind services knowledge base file
func ReadWindKnowledgeBase(path string) (*WindKnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var kb WindKnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", path, err)
	}
	if len(kb.Services) == 0 {
		return nil, fmt.Errorf("knowledge base %s has no wind_turbine_services_comprehensive entries", path)
	}
	return &kb, nil
}

// StampMetadata records the publication details stored alongside the raw file
func (kb *WindKnowledgeBase) StampMetadata(now time.Time) {
	kb.Metadata = map[string]any{
		"created_date": now.Format(time.RFC3339),
		"version":      "1.0",
		"source":       windSource,
		"description":  "Comprehensive wind turbine services knowledge base",
	}
}

// Categories returns the service categories whose value is an object, sorted
func (kb *WindKnowledgeBase) Categories() []string {
	var names []string
	for name := range kb.Services {
		if _, ok := kb.category(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (kb *WindKnowledgeBase) category(name string) (map[string]any, bool) {
	var data map[string]any
	if err := json.Unmarshal(kb.Services[name], &data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}

// BuildWindTurbineDocuments creates one document per service category plus a
// detail document for every listed service
func BuildWindTurbineDocuments(kb *WindKnowledgeBase, now time.Time) ([]Document, error) {
	created := now.Format(time.RFC3339)
	var docs []Document

	for _, name := range kb.Categories() {
		data, _ := kb.category(name)

		content, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode service %s: %w", name, err)
		}

		title := CategoryTitle(name)
		description, _ := data["description"].(string)

		docs = append(docs, Document{
			Action:      ActionMergeOrUpload,
			ID:          "wind-turbine-" + name,
			Title:       title,
			Content:     string(content),
			Category:    windCategory,
			ServiceType: name,
			Description: description,
			Tags:        []string{name, "wind_turbine", "renewable_energy", "swire"},
			CreatedDate: created,
			Source:      windSource,
		})

		services, _ := data["services"].([]any)
		for i, item := range services {
			service := serviceText(item)
			docs = append(docs, Document{
				Action:      ActionMergeOrUpload,
				ID:          fmt.Sprintf("wind-turbine-%s-service-%d", name, i),
				Title:       title + " - " + service,
				Content:     service,
				Category:    windCategory,
				ServiceType: name,
				Description: service,
				Tags:        []string{name, "wind_turbine", "service_detail", "swire"},
				CreatedDate: created,
				Source:      windSource,
			})
		}
	}

	return docs, nil
}

// StorageDocuments converts the knowledge base into the object storage copy of
// the search format: main category documents only, under a "documents" key
func StorageDocuments(kb *WindKnowledgeBase) (map[string][]Document, error) {
	var docs []Document
	for _, name := range kb.Categories() {
		data, _ := kb.category(name)
		description, ok := data["description"].(string)
		if !ok {
			continue
		}

		content, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode service %s: %w", name, err)
		}

		docs = append(docs, Document{
			ID:          "wind-turbine-" + name,
			Title:       CategoryTitle(name),
			Content:     string(content),
			Category:    windCategory,
			ServiceType: name,
			Description: description,
			Tags:        []string{name, "wind_turbine", "renewable_energy", "swire"},
		})
	}
	return map[string][]Document{"documents": docs}, nil
}

// CategoryTitle turns a category key such as "blade_services" into "Blade Services"
func CategoryTitle(name string) string {
	return titleCase(strings.ReplaceAll(name, "_", " "))
}

func serviceText(item any) string {
	if s, ok := item.(string); ok {
		return s
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Sprint(item)
	}
	return string(data)
}

// Summary describes a prepared upload
type Summary struct {
	TotalDocuments    int      `json:"total_documents"`
	ServiceCategories []string `json:"service_categories"`
	CreatedDate       string   `json:"created_date"`
	AzureEndpoint     string   `json:"azure_endpoint"`
	IndexName         string   `json:"index_name"`
}

// UploadSummary summarizes prepared documents for the upload report
func UploadSummary(docs []Document, endpoint, index string, now time.Time) map[string]Summary {
	if index == "" {
		index = DefaultIndexName
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, doc := range docs {
		if doc.ServiceType == "" {
			continue
		}
		if _, ok := seen[doc.ServiceType]; ok {
			continue
		}
		seen[doc.ServiceType] = struct{}{}
		categories = append(categories, doc.ServiceType)
	}
	sort.Strings(categories)

	return map[string]Summary{
		"upload_summary": {
			TotalDocuments:    len(docs),
			ServiceCategories: categories,
			CreatedDate:       now.Format(time.RFC3339),
			AzureEndpoint:     endpoint,
			IndexName:         index,
		},
	}
}
