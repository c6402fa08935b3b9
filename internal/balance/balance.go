// Package balance holds the gameplay tuning constants. Defaults are
// compiled in; deployments can override them with a balance.yaml file.
package balance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Balance is the full tuning surface of the simulation.
type Balance struct {
	// Starting resource allocation for a fresh run.
	StartFood      float64 `yaml:"start_food"`
	StartWater     float64 `yaml:"start_water"`
	StartHerbs     float64 `yaml:"start_herbs"`
	StartMaterials float64 `yaml:"start_materials"`

	// Ledger consumption divisors: one cat consumes
	// elapsed/divisor units per tick.
	FoodUseDivisor  float64 `yaml:"food_use_divisor"`
	WaterUseDivisor float64 `yaml:"water_use_divisor"`

	// Colony status boundaries on food+water+herbs.
	StrugglingBelow float64 `yaml:"struggling_below"`
	ThrivingAbove   float64 `yaml:"thriving_above"`

	// Auto-queue thresholds for system-requested plans.
	LowFood      float64 `yaml:"low_food"`
	LowMaterials float64 `yaml:"low_materials"`

	// Ritual gating.
	RitualFoodCost       float64 `yaml:"ritual_food_cost"`
	RitualWaterCost      float64 `yaml:"ritual_water_cost"`
	RitualFreshnessHours float64 `yaml:"ritual_freshness_hours"`

	// Click boost.
	ClickSoftCap       int     `yaml:"click_soft_cap"`
	ClickDecayPerClick float64 `yaml:"click_decay_per_click"`
	ClickDecayFloor    float64 `yaml:"click_decay_floor"`
	ClickWindowSeconds int     `yaml:"click_window_seconds"`
	MinJobSeconds      int     `yaml:"min_job_seconds"`

	// Watchdog.
	BaseResilienceHours    float64 `yaml:"base_resilience_hours"`
	ResilienceHoursPerStep float64 `yaml:"resilience_hours_per_step"`
	MaxResilienceHours     float64 `yaml:"max_resilience_hours"`

	// Cat needs decay per unattended hour while the matching supply is dry.
	HungerDecayPerHour float64 `yaml:"hunger_decay_per_hour"`
	ThirstDecayPerHour float64 `yaml:"thirst_decay_per_hour"`

	// Role XP: per-completion gains and the specialization threshold.
	JobRoleXP        int `yaml:"job_role_xp"`
	TaskRoleXP       int `yaml:"task_role_xp"`
	SpecializationXP int `yaml:"specialization_xp"`

	// Survival task board.
	BoardMaxOpenTasks   int `yaml:"board_max_open_tasks"`
	BoardWorkSeconds    int `yaml:"board_work_seconds"`
	StarterRosterSize   int `yaml:"starter_roster_size"`
	AutomationPerJobPct int `yaml:"automation_per_job_pct"`
}

// Default returns the shipped tuning.
func Default() Balance {
	return Balance{
		StartFood:      30,
		StartWater:     30,
		StartHerbs:     5,
		StartMaterials: 10,

		FoodUseDivisor:  3600,
		WaterUseDivisor: 3000,

		StrugglingBelow: 20,
		ThrivingAbove:   70,

		LowFood:      30,
		LowMaterials: 15,

		RitualFoodCost:       16,
		RitualWaterCost:      16,
		RitualFreshnessHours: 12,

		ClickSoftCap:       30,
		ClickDecayPerClick: 0.05,
		ClickDecayFloor:    0.2,
		ClickWindowSeconds: 60,
		MinJobSeconds:      5,

		BaseResilienceHours:    2,
		ResilienceHoursPerStep: 6,
		MaxResilienceHours:     96,

		HungerDecayPerHour: 3,
		ThirstDecayPerHour: 5,

		JobRoleXP:        2,
		TaskRoleXP:       1,
		SpecializationXP: 10,

		BoardMaxOpenTasks:   2,
		BoardWorkSeconds:    120,
		StarterRosterSize:   3,
		AutomationPerJobPct: 2,
	}
}

// Load reads a yaml override file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Balance, error) {
	b := Default()
	if path == "" {
		return b, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("failed to read balance file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("balance.yaml: %w", err)
	}
	return b, nil
}
