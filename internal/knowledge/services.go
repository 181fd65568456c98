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
	"strings"
	"time"
)

const (
	serviceSource = "Swire Services Portfolio"
	serviceType   = "swire-service"
)

// Section is a titled bullet list inside a service description
type Section struct {
	Heading string
	Items   []string
}

// Service is one entry of the Swire service portfolio
type Service struct {
	Name        string
	Description string
	Sections    []Section
}

// ServiceCatalog is the curated Swire wind energy service portfolio
var ServiceCatalog = []Service{
	{
		Name:        "Pre-Assembly and Installation Services",
		Description: "Complete pre-assembly and installation solutions for wind turbine projects",
		Sections: []Section{
			{Heading: "Services Offered", Items: []string{
				"Turbine component pre-assembly at staging areas",
				"Foundation preparation and installation",
				"Tower erection and nacelle installation",
				"Rotor and blade assembly and installation",
				"Electrical connections and commissioning",
				"Grid connection and testing",
			}},
			{Heading: "Key Capabilities", Items: []string{
				"Heavy lift crane operations",
				"Specialized transport and logistics",
				"Site preparation and civil works",
				"Quality assurance and safety protocols",
			}},
		},
	},
	{
		Name:        "Blade Services",
		Description: "Comprehensive blade maintenance, repair, and optimization services",
		Sections: []Section{
			{Heading: "Services Offered", Items: []string{
				"Blade inspection using drones and rope access",
				"Leading edge erosion repair",
				"Lightning protection system maintenance",
				"Blade balancing and aerodynamic optimization",
				"Structural repairs and reinforcement",
				"Blade cleaning and surface treatments",
			}},
			{Heading: "Technologies & Methods", Items: []string{
				"Advanced composite repair techniques",
				"Non-destructive testing methods",
				"Aerodynamic performance analysis",
				"Predictive maintenance algorithms",
			}},
		},
	},
	{
		Name:        "HV and Electrical Services",
		Description: "High voltage electrical systems installation, maintenance, and testing",
		Sections: []Section{
			{Heading: "Services Offered", Items: []string{
				"HV cable installation and termination",
				"Transformer installation and commissioning",
				"Switchgear testing and maintenance",
				"Protection system configuration",
				"Power quality analysis and optimization",
				"Electrical safety testing and certification",
			}},
			{Heading: "Technical Expertise", Items: []string{
				"33kV and 66kV systems",
				"SCADA integration",
				"Grid code compliance",
				"Electrical fault analysis",
			}},
		},
	},
	{
		Name:        "Service & Maintenance",
		Description: "Comprehensive O&M services for wind farm operations",
		Sections: []Section{
			{Heading: "Services Offered", Items: []string{
				"Scheduled preventive maintenance",
				"Condition monitoring and diagnostics",
				"Emergency repair services",
				"Performance optimization",
				"Spare parts management",
				"Technical support and training",
			}},
			{Heading: "Service Programs", Items: []string{
				"Full-service O&M contracts",
				"Condition-based maintenance",
				"Remote monitoring services",
				"Warranty management",
			}},
		},
	},
	{
		Name:        "Marine Services",
		Description: "Specialized offshore wind services and marine operations",
		Sections: []Section{
			{Heading: "Services Offered", Items: []string{
				"Offshore installation vessel operations",
				"Jack-up platform services",
				"Marine logistics and transport",
				"Subsea cable installation",
				"Offshore maintenance campaigns",
				"Weather routing and planning",
			}},
			{Heading: "Marine Vessels", Items: []string{
				"Self-propelled jack-up vessels",
				"Crew transfer vessels (CTVs)",
				"Service operation vessels (SOVs)",
				"Heavy lift vessels",
			}},
		},
	},
	{
		Name:        "Actsafe Power Ascenders",
		Description: "Advanced climbing and access solutions for wind turbine maintenance",
		Sections: []Section{
			{Heading: "Equipment & Systems", Items: []string{
				"Actsafe power ascenders for tower climbing",
				"Fall protection and rescue systems",
				"Portable winch systems",
				"Rope access equipment and training",
				"Emergency evacuation systems",
				"Height safety certification programs",
			}},
			{Heading: "Key Benefits", Items: []string{
				"Reduced climbing time and fatigue",
				"Enhanced worker safety",
				"Emergency rescue capabilities",
				"Compliance with height safety regulations",
			}},
		},
	},
}

// ServiceID derives the stable document id of a service
func ServiceID(name string) string {
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "_")
	return "swire_" + strings.ReplaceAll(slug, "&", "and")
}

// BuildServiceDocuments renders each service as a markdown document
func BuildServiceDocuments(catalog []Service, now time.Time) []Document {
	created := now.Format(time.RFC3339)
	docs := make([]Document, 0, len(catalog))

	for _, svc := range catalog {
		docs = append(docs, Document{
			Action:      ActionUpload,
			ID:          ServiceID(svc.Name),
			Title:       svc.Name,
			Content:     renderService(svc),
			Description: svc.Description,
			Source:      serviceSource,
			Type:        serviceType,
			Tags: []string{
				"swire",
				strings.ReplaceAll(strings.ToLower(svc.Name), " ", "-"),
				"wind-energy",
				"services",
			},
			CreatedDate: created,
		})
	}
	return docs
}

func renderService(svc Service) string {
	parts := []string{"# " + svc.Name + "\n", svc.Description + "\n"}
	for i, section := range svc.Sections {
		parts = append(parts, "## "+section.Heading+":")
		for _, item := range section.Items {
			parts = append(parts, "- "+item)
		}
		if i < len(svc.Sections)-1 {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "\n")
}
