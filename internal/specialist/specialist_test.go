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

package specialist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swire-renewables/intelligence-assistant/internal/classifier"
)

func TestInsight_Branches(t *testing.T) {
	agent := NewAgent()

	tests := []struct {
		name             string
		query            string
		domain           string
		expectedResponse string
		detailKey        string
		expectMetrics    bool
	}{
		{
			name:             "wind maintenance",
			query:            "Turbine MAINTENANCE plan",
			domain:           classifier.DomainWind,
			expectedResponse: "Wind turbine maintenance schedule: Major maintenance every 6 months, minor maintenance every 3 months",
			detailKey:        "turbine_types",
		},
		{
			name:             "wind performance",
			query:            "turbine efficiency",
			domain:           classifier.DomainWind,
			expectedResponse: "Key wind farm performance metrics include capacity factor (target >35%), availability (target >97%), and turbine efficiency",
			expectMetrics:    true,
		},
		{
			name:             "solar cleaning",
			query:            "panel cleaning",
			domain:           classifier.DomainSolar,
			expectedResponse: "Solar panel cleaning schedule: Monthly during dry season. Regular cleaning improves efficiency by 5-15%",
			detailKey:        "panel_types",
		},
		{
			name:             "solar inverter",
			query:            "inverter faults",
			domain:           classifier.DomainSolar,
			expectedResponse: "Solar inverter monitoring and maintenance",
			detailKey:        "inverter_brands",
		},
		{
			name:             "operations shifts",
			query:            "shift roster",
			domain:           classifier.DomainOperations,
			expectedResponse: "Operational shift patterns for 24/7 monitoring",
			detailKey:        "shifts",
		},
		{
			name:             "operations emergency",
			query:            "emergency contacts",
			domain:           classifier.DomainOperations,
			expectedResponse: "Emergency response procedures and contacts",
			detailKey:        "contacts",
		},
		{
			name:             "safety ppe",
			query:            "safety ppe",
			domain:           classifier.DomainSafety,
			expectedResponse: "Personal Protective Equipment requirements for all site personnel",
			detailKey:        "ppe_list",
		},
		{
			name:             "safety training",
			query:            "training plan",
			domain:           classifier.DomainSafety,
			expectedResponse: "Safety training schedule: Quarterly safety refresher",
			detailKey:        "training_topics",
		},
		{
			name:             "finance budget",
			query:            "budget",
			domain:           classifier.DomainFinance,
			expectedResponse: "Financial budget categories and planning",
			detailKey:        "categories",
		},
		{
			name:             "finance kpi",
			query:            "finance kpi",
			domain:           classifier.DomainFinance,
			expectedResponse: "Key financial performance indicators",
			expectMetrics:    true,
		},
		{
			name:             "finance default",
			query:            "financial summary",
			domain:           classifier.DomainFinance,
			expectedResponse: "Financial management information",
			expectMetrics:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insight, err := agent.Insight(tt.query, tt.domain)
			require.NoError(t, err)

			assert.Equal(t, tt.domain, insight.Domain)
			assert.Equal(t, tt.expectedResponse, insight.Response)
			if tt.detailKey != "" {
				assert.NotEmpty(t, insight.Details[tt.detailKey])
			}
			if tt.expectMetrics {
				assert.NotEmpty(t, insight.Metrics)
			}
		})
	}
}

func TestInsight_SafetyPPEListsHardHat(t *testing.T) {
	agent := NewAgent()

	insight, err := agent.Insight("safety ppe", classifier.DomainSafety)
	require.NoError(t, err)

	assert.Contains(t, insight.Details["ppe_list"], "Hard hat")
	assert.Equal(t, "100% PPE compliance required on all sites", insight.Notes["compliance"])
}

func TestInsight_UnsupportedDomain(t *testing.T) {
	agent := NewAgent()

	_, err := agent.Insight("anything", "hydrogen")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedDomain))
}

func TestExpertise(t *testing.T) {
	agent := NewAgent()

	expertise, err := agent.Expertise(classifier.DomainOperations)
	require.NoError(t, err)
	assert.Equal(t, "Daily at 8AM and 8PM", expertise.Schedules["reporting"])
	assert.Equal(t, []string{"Day: 6AM-6PM", "Night: 6PM-6AM"}, expertise.Lists["shift_patterns"])

	_, err = agent.Expertise("unknown")
	assert.ErrorIs(t, err, ErrUnsupportedDomain)
}

func TestSpecializations_ReturnsCopy(t *testing.T) {
	agent := NewAgent()

	specs := agent.Specializations()
	require.Len(t, specs, 5)
	specs[0] = "mutated"

	assert.Equal(t, classifier.DomainWind, agent.Specializations()[0])
}
