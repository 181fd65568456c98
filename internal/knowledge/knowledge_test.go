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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

const windFixture = `{
  "wind_turbine_services_comprehensive": {
    "blade_services": {
      "description": "Blade inspection and repair",
      "services": ["Drone inspection", "Leading edge repair"]
    },
    "o&m_services": {
      "description": "Operations and maintenance",
      "services": ["Scheduled maintenance"]
    },
    "company_overview": "Swire Renewable Energy",
    "grid_integration": {
      "standards": ["IEC 61400"]
    }
  }
}`

func writeWindFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wind_kb.json")
	require.NoError(t, os.WriteFile(path, []byte(windFixture), 0o644))
	return path
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{name: "valid", doc: Document{ID: "a", Tags: []string{"swire"}}},
		{name: "missing id", doc: Document{ID: " ", Tags: []string{"swire"}}, wantErr: true},
		{name: "no tags", doc: Document{ID: "a"}, wantErr: true},
		{name: "blank tag", doc: Document{ID: "a", Tags: []string{"swire", "  "}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidDocument))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBatchValidate_ReportsEveryProblem(t *testing.T) {
	batch := Batch{Value: []Document{
		{ID: "a", Tags: []string{"x"}},
		{ID: "a", Tags: []string{"x"}},
		{ID: "", Tags: []string{"x"}},
	}}

	err := batch.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "duplicate id a")
	assert.Contains(t, err.Error(), "id is required")
}

func TestBatchWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "batch.json")
	batch := Batch{Value: BuildServiceDocuments(ServiceCatalog, fixedNow)}

	require.NoError(t, batch.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"@search.action": "upload"`)
	assert.Contains(t, string(raw), "\n  \"value\": [")

	loaded, err := ReadBatch(path)
	require.NoError(t, err)
	assert.Equal(t, batch, loaded)
}

func TestBuildServiceDocuments(t *testing.T) {
	docs := BuildServiceDocuments(ServiceCatalog, fixedNow)
	require.Len(t, docs, 6)
	require.NoError(t, Batch{Value: docs}.Validate())

	byID := map[string]Document{}
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	svc, ok := byID["swire_service_and_maintenance"]
	require.True(t, ok)
	assert.Equal(t, "Service & Maintenance", svc.Title)
	assert.Equal(t, []string{"swire", "service-&-maintenance", "wind-energy", "services"}, svc.Tags)
	assert.Equal(t, "2024-06-03T14:30:00Z", svc.CreatedDate)

	blade := byID["swire_blade_services"]
	assert.True(t, strings.HasPrefix(blade.Content, "# Blade Services\n\nComprehensive blade maintenance"))
	assert.Contains(t, blade.Content, "## Services Offered:\n- Blade inspection using drones and rope access")
	assert.Contains(t, blade.Content, "## Technologies & Methods:")

	actsafe := byID["swire_actsafe_power_ascenders"]
	assert.NotContains(t, actsafe.Content, "## Services Offered:")
	assert.Contains(t, actsafe.Content, "## Equipment & Systems:")
}

func TestBuildWindTurbineDocuments(t *testing.T) {
	kb, err := ReadWindKnowledgeBase(writeWindFixture(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"blade_services", "grid_integration", "o&m_services"}, kb.Categories())

	docs, err := BuildWindTurbineDocuments(kb, fixedNow)
	require.NoError(t, err)
	require.NoError(t, Batch{Value: docs}.Validate())

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
		assert.Equal(t, ActionMergeOrUpload, doc.Action)
		assert.Equal(t, "wind_turbine_services", doc.Category)
		assert.Equal(t, "Swire Intelligence Assistant", doc.Source)
	}
	assert.Equal(t, []string{
		"wind-turbine-blade_services",
		"wind-turbine-blade_services-service-0",
		"wind-turbine-blade_services-service-1",
		"wind-turbine-grid_integration",
		"wind-turbine-o&m_services",
		"wind-turbine-o&m_services-service-0",
	}, ids)

	main := docs[0]
	assert.Equal(t, "Blade Services", main.Title)
	assert.Equal(t, "Blade inspection and repair", main.Description)
	assert.Equal(t, []string{"blade_services", "wind_turbine", "renewable_energy", "swire"}, main.Tags)

	var content map[string]any
	require.NoError(t, json.Unmarshal([]byte(main.Content), &content))
	assert.Equal(t, "Blade inspection and repair", content["description"])

	sub := docs[2]
	assert.Equal(t, "Blade Services - Leading edge repair", sub.Title)
	assert.Equal(t, "Leading edge repair", sub.Content)
	assert.Equal(t, []string{"blade_services", "wind_turbine", "service_detail", "swire"}, sub.Tags)

	assert.Equal(t, "O&M Services", docs[4].Title)
	assert.Empty(t, docs[3].Description)
}

func TestReadWindKnowledgeBase_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadWindKnowledgeBase(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"other": {}}`), 0o644))
	_, err = ReadWindKnowledgeBase(empty)
	assert.Error(t, err)
}

func TestStorageDocumentsAndMetadata(t *testing.T) {
	kb, err := ReadWindKnowledgeBase(writeWindFixture(t))
	require.NoError(t, err)

	out, err := StorageDocuments(kb)
	require.NoError(t, err)
	require.Len(t, out["documents"], 2)
	assert.Empty(t, out["documents"][0].Action)

	kb.StampMetadata(fixedNow)
	assert.Equal(t, "1.0", kb.Metadata["version"])

	encoded, err := json.Marshal(kb)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"company_overview":"Swire Renewable Energy"`)
}

func TestUploadSummary(t *testing.T) {
	docs := []Document{
		{ID: "1", ServiceType: "marine"},
		{ID: "2", ServiceType: "blade"},
		{ID: "3", ServiceType: "marine"},
		{ID: "4"},
	}

	summary := UploadSummary(docs, "https://search.example.net", "", fixedNow)["upload_summary"]
	assert.Equal(t, 4, summary.TotalDocuments)
	assert.Equal(t, []string{"blade", "marine"}, summary.ServiceCategories)
	assert.Equal(t, DefaultIndexName, summary.IndexName)
	assert.Equal(t, "https://search.example.net", summary.AzureEndpoint)
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("Swire Wind Energy Services Knowledge Base", []Document{
		{Title: "Blade Services", Content: "# Blade Services"},
	})
	assert.Equal(t, "# Swire Wind Energy Services Knowledge Base\n\n## Blade Services\n\n# Blade Services\n\n---\n\n", out)
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "Hv And Electrical Services", CategoryTitle("HV_and_electrical_services"))
	assert.Equal(t, "3D Scanning", CategoryTitle("3d_scanning"))
}
