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

package tools

import "context"

// Names of the tools backed by fixed reports
const (
	HSEToolName        = "hse"
	DatabaseToolName   = "database"
	LeadershipToolName = "leadership"
)

const (
	hseReport = "HSE Summary: 3 minor incidents this month, 0 major incidents, safety score: 95%. " +
		"PPE compliance: 100%. PPE Requirements: Hard hats, safety glasses, high-vis vests, steel-toed boots"

	hrReport = "HR Summary: Total 45,000 hours this month. " +
		"Top sites: Site A (12,000h), Site B (10,500h), Site C (8,200h)"

	leadershipReport = `CEO: Ryan Smith
Title: Chief Executive Officer
Company: Swire Renewable Energy

CEO Message: We are entering an exciting phase of our company's journey, continuing our evolutionary path to become a leading renewable energy inspection, repair and maintenance business, and ultimately a renewable energy asset manager.

Company Focus: Renewable energy inspection, repair and maintenance
Vision: Leading renewable energy asset manager
Core Values: Health and safety, Quality, Innovation, Sustainable growth`
)

// StaticTool answers every query with the same report
type StaticTool struct {
	name        string
	description string
	parameters  []string
	report      string
}

// Name implements Tool
func (s *StaticTool) Name() string { return s.name }

// Description implements Tool
func (s *StaticTool) Description() string { return s.description }

// Parameters implements Tool
func (s *StaticTool) Parameters() []string { return append([]string(nil), s.parameters...) }

// Run implements Tool
func (s *StaticTool) Run(_ context.Context, _ string) (string, error) {
	return s.report, nil
}

// NewHSETool returns the safety report tool
func NewHSETool() *StaticTool {
	return &StaticTool{
		name:        HSEToolName,
		description: "Read and analyze HSE (Health, Safety, Environment) incident reports",
		parameters:  []string{"query"},
		report:      hseReport,
	}
}

// NewDatabaseTool returns the HR man-hours tool
func NewDatabaseTool() *StaticTool {
	return &StaticTool{
		name:        DatabaseToolName,
		description: "Execute read-only queries on HR, inventory, and timesheet tables",
		parameters:  []string{"query"},
		report:      hrReport,
	}
}

// NewLeadershipTool returns the company leadership tool
func NewLeadershipTool() *StaticTool {
	return &StaticTool{
		name:        LeadershipToolName,
		description: "Get information about CEO Ryan Smith, company leadership, and executive team",
		parameters:  []string{"query"},
		report:      leadershipReport,
	}
}
