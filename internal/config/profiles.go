package config

import "github.com/MikeSquared-Agency/Verdant/internal/scoring"

// BuiltinProfiles returns the profiles available without a config file.
// A config file may add profiles or replace these by name.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"packaging": {
			Description: "Packaging material sustainability",
			IDColumn:    "Material",
			Criteria: []scoring.CriterionSpec{
				{Name: "Cost_per_unit", Orientation: scoring.Minimize, Weight: 0.3},
				{Name: "Recyclability", Orientation: scoring.Maximize, Weight: 0.4},
				{Name: "Carbon_Footprint", Orientation: scoring.Minimize, Weight: 0.2},
				{Name: "Durability", Orientation: scoring.Maximize, Weight: 0.1},
			},
		},
		"lifecycle": {
			Description: "Lifecycle stage impact",
			IDColumn:    "Stage",
			Criteria: []scoring.CriterionSpec{
				{Name: "Cost", Orientation: scoring.Minimize, Weight: 0.3},
				{Name: "Carbon_Footprint", Orientation: scoring.Minimize, Weight: 0.3},
				{Name: "Water_Usage", Orientation: scoring.Minimize, Weight: 0.2},
				{Name: "Energy_Consumption", Orientation: scoring.Minimize, Weight: 0.2},
			},
		},
		"circularity": {
			Description: "Material circularity with improvement suggestions",
			IDColumn:    "material",
			Criteria: []scoring.CriterionSpec{
				{Name: "recyclability", Orientation: scoring.Maximize, Weight: 0.4},
				{Name: "reuse_potential", Orientation: scoring.Maximize, Weight: 0.3},
				{Name: "end_of_life_recovery", Orientation: scoring.Maximize, Weight: 0.2},
				{Name: "carbon_footprint", Orientation: scoring.Minimize, Weight: 0.1},
			},
			Advisor: true,
		},
	}
}
