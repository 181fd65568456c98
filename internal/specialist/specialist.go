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

// Package specialist provides static domain insights for renewable energy operations.
package specialist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/swire-renewables/intelligence-assistant/internal/classifier"
)

// ErrUnsupportedDomain is returned for domains without a specialist
var ErrUnsupportedDomain = errors.New("domain not supported")

// Insight is a specialist answer for one domain
type Insight struct {
	Domain     string              `json:"domain"`
	Response   string              `json:"response"`
	Details    map[string][]string `json:"details,omitempty"`
	Notes      map[string]string   `json:"notes,omitempty"`
	Metrics    []string            `json:"metrics,omitempty"`
	NextAction string              `json:"next_action,omitempty"`
}

// Expertise is the full knowledge held for one domain
type Expertise struct {
	Domain    string              `json:"domain"`
	Lists     map[string][]string `json:"lists"`
	Schedules map[string]string   `json:"schedules"`
}

// Agent answers domain questions from a fixed knowledge table
type Agent struct {
	specializations []string
	knowledge       map[string]Expertise
}

// NewAgent creates a specialist agent with the built-in domain knowledge
func NewAgent() *Agent {
	return &Agent{
		specializations: []string{
			classifier.DomainWind,
			classifier.DomainSolar,
			classifier.DomainOperations,
			classifier.DomainSafety,
			classifier.DomainFinance,
		},
		knowledge: map[string]Expertise{
			classifier.DomainWind: {
				Domain: classifier.DomainWind,
				Lists: map[string][]string{
					"turbine_types":       {"Vestas V150", "GE 2.5MW", "Siemens SG 3.4"},
					"performance_metrics": {"capacity_factor", "availability", "turbine_efficiency"},
				},
				Schedules: map[string]string{
					"major_maintenance": "6 months",
					"minor_maintenance": "3 months",
				},
			},
			classifier.DomainSolar: {
				Domain: classifier.DomainSolar,
				Lists: map[string][]string{
					"panel_types":     {"Monocrystalline", "Polycrystalline", "Thin-film"},
					"inverter_brands": {"SMA", "Fronius", "ABB"},
				},
				Schedules: map[string]string{
					"cleaning": "Monthly during dry season",
				},
			},
			classifier.DomainOperations: {
				Domain: classifier.DomainOperations,
				Lists: map[string][]string{
					"shift_patterns":     {"Day: 6AM-6PM", "Night: 6PM-6AM"},
					"emergency_contacts": {"Site Manager", "Control Room", "Emergency Services"},
				},
				Schedules: map[string]string{
					"reporting": "Daily at 8AM and 8PM",
				},
			},
			classifier.DomainSafety: {
				Domain: classifier.DomainSafety,
				Lists: map[string][]string{
					"ppe_requirements":    {"Hard hat", "Safety glasses", "High-vis vest", "Steel-toed boots"},
					"incident_categories": {"Near miss", "Minor injury", "Major injury", "Environmental"},
				},
				Schedules: map[string]string{
					"training": "Quarterly safety refresher",
				},
			},
			classifier.DomainFinance: {
				Domain: classifier.DomainFinance,
				Lists: map[string][]string{
					"reporting_periods": {"Monthly", "Quarterly", "Annual"},
					"key_metrics":       {"Revenue", "EBITDA", "Capacity factor", "O&M costs"},
					"budget_categories": {"CAPEX", "OPEX", "Maintenance", "Insurance"},
				},
				Schedules: map[string]string{},
			},
		},
	}
}

// Specializations lists the supported domains in a stable order
func (a *Agent) Specializations() []string {
	return append([]string(nil), a.specializations...)
}

// Expertise returns the knowledge held for a domain
func (a *Agent) Expertise(domain string) (Expertise, error) {
	expertise, ok := a.knowledge[domain]
	if !ok {
		return Expertise{}, fmt.Errorf("no expertise available for domain %s: %w", domain, ErrUnsupportedDomain)
	}
	return expertise, nil
}

// Insight returns the specialist answer for query within domain
func (a *Agent) Insight(query, domain string) (Insight, error) {
	expertise, ok := a.knowledge[domain]
	if !ok {
		return Insight{}, fmt.Errorf("domain %s: %w", domain, ErrUnsupportedDomain)
	}

	normalized := strings.ToLower(query)

	switch domain {
	case classifier.DomainWind:
		return windInsight(normalized, expertise), nil
	case classifier.DomainSolar:
		return solarInsight(normalized, expertise), nil
	case classifier.DomainOperations:
		return operationsInsight(normalized, expertise), nil
	case classifier.DomainSafety:
		return safetyInsight(normalized, expertise), nil
	case classifier.DomainFinance:
		return financeInsight(normalized, expertise), nil
	}

	return Insight{Domain: domain, Response: "General Swire Renewables information"}, nil
}

func windInsight(query string, e Expertise) Insight {
	switch {
	case strings.Contains(query, "maintenance"):
		return Insight{
			Domain: e.Domain,
			Response: fmt.Sprintf("Wind turbine maintenance schedule: Major maintenance every %s, minor maintenance every %s",
				e.Schedules["major_maintenance"], e.Schedules["minor_maintenance"]),
			Details:    map[string][]string{"turbine_types": e.Lists["turbine_types"]},
			NextAction: "Check maintenance logs for upcoming scheduled work",
		}
	case strings.Contains(query, "performance") || strings.Contains(query, "efficiency"):
		return Insight{
			Domain:   e.Domain,
			Response: "Key wind farm performance metrics include capacity factor (target >35%), availability (target >97%), and turbine efficiency",
			Metrics:  e.Lists["performance_metrics"],
			Notes:    map[string]string{"benchmark": "Industry average capacity factor: 35-45%"},
		}
	}

	return Insight{
		Domain:   e.Domain,
		Response: "Wind energy operations data available",
		Details:  map[string][]string{"turbine_fleet": e.Lists["turbine_types"]},
	}
}

func solarInsight(query string, e Expertise) Insight {
	switch {
	case strings.Contains(query, "cleaning") || strings.Contains(query, "maintenance"):
		return Insight{
			Domain: e.Domain,
			Response: fmt.Sprintf("Solar panel cleaning schedule: %s. Regular cleaning improves efficiency by 5-15%%",
				e.Schedules["cleaning"]),
			Details: map[string][]string{"panel_types": e.Lists["panel_types"]},
			Notes:   map[string]string{"maintenance_tip": "Clean panels early morning or late evening to avoid thermal shock"},
		}
	case strings.Contains(query, "inverter"):
		return Insight{
			Domain:   e.Domain,
			Response: "Solar inverter monitoring and maintenance",
			Details:  map[string][]string{"inverter_brands": e.Lists["inverter_brands"]},
			Notes:    map[string]string{"monitoring": "Check inverter performance daily via SCADA system"},
		}
	}

	return Insight{
		Domain:   e.Domain,
		Response: "Solar energy operations data available",
		Details:  map[string][]string{"technology": e.Lists["panel_types"]},
	}
}

func operationsInsight(query string, e Expertise) Insight {
	switch {
	case strings.Contains(query, "shift") || strings.Contains(query, "schedule"):
		return Insight{
			Domain:   e.Domain,
			Response: "Operational shift patterns for 24/7 monitoring",
			Details:  map[string][]string{"shifts": e.Lists["shift_patterns"]},
			Notes:    map[string]string{"reporting": e.Schedules["reporting"]},
		}
	case strings.Contains(query, "emergency"):
		return Insight{
			Domain:   e.Domain,
			Response: "Emergency response procedures and contacts",
			Details:  map[string][]string{"contacts": e.Lists["emergency_contacts"]},
			Notes:    map[string]string{"procedure": "Follow emergency response plan in control room"},
		}
	}

	return Insight{
		Domain:   e.Domain,
		Response: "Operations management information",
		Details:  map[string][]string{"shifts": e.Lists["shift_patterns"]},
	}
}

func safetyInsight(query string, e Expertise) Insight {
	switch {
	case strings.Contains(query, "ppe") || strings.Contains(query, "equipment"):
		return Insight{
			Domain:   e.Domain,
			Response: "Personal Protective Equipment requirements for all site personnel",
			Details:  map[string][]string{"ppe_list": e.Lists["ppe_requirements"]},
			Notes:    map[string]string{"compliance": "100% PPE compliance required on all sites"},
		}
	case strings.Contains(query, "training"):
		return Insight{
			Domain:   e.Domain,
			Response: fmt.Sprintf("Safety training schedule: %s", e.Schedules["training"]),
			Details:  map[string][]string{"training_topics": {"Working at height", "Electrical safety", "Emergency procedures"}},
			Notes:    map[string]string{"certification": "All personnel must maintain current safety certifications"},
		}
	case strings.Contains(query, "incident"):
		return Insight{
			Domain:   e.Domain,
			Response: "Incident reporting and classification system",
			Details:  map[string][]string{"categories": e.Lists["incident_categories"]},
			Notes:    map[string]string{"reporting": "All incidents must be reported within 24 hours"},
		}
	}

	return Insight{
		Domain:   e.Domain,
		Response: "Safety management information",
		Details:  map[string][]string{"ppe": e.Lists["ppe_requirements"]},
	}
}

func financeInsight(query string, e Expertise) Insight {
	switch {
	case strings.Contains(query, "budget"):
		return Insight{
			Domain:   e.Domain,
			Response: "Financial budget categories and planning",
			Details:  map[string][]string{"categories": e.Lists["budget_categories"]},
			Notes:    map[string]string{"planning": "Annual budget review with quarterly updates"},
		}
	case strings.Contains(query, "metrics") || strings.Contains(query, "kpi"):
		return Insight{
			Domain:   e.Domain,
			Response: "Key financial performance indicators",
			Metrics:  e.Lists["key_metrics"],
			Notes:    map[string]string{"reporting": "Monthly financial dashboard with trend analysis"},
		}
	case strings.Contains(query, "reporting"):
		return Insight{
			Domain:   e.Domain,
			Response: "Financial reporting schedule and requirements",
			Details:  map[string][]string{"periods": e.Lists["reporting_periods"]},
			Notes:    map[string]string{"compliance": "Quarterly reports to board, monthly to operations"},
		}
	}

	return Insight{
		Domain:   e.Domain,
		Response: "Financial management information",
		Metrics:  e.Lists["key_metrics"],
	}
}
