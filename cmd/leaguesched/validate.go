package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/derekprior/leaguesched/internal/config"
	"github.com/derekprior/leaguesched/internal/excel"
	"github.com/derekprior/leaguesched/internal/validator"
)

func runValidate(configPath, schedulePath string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	violations, err := validator.Validate(cfg, schedulePath)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errors := 0
	warnings := 0
	for _, v := range violations {
		where := ""
		if v.Row > 0 {
			where = fmt.Sprintf(" (row %d)", v.Row)
		}
		switch v.Type {
		case "error":
			errors++
			fmt.Printf("✗ Rule violation%s: %s\n", where, v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ Guideline violation%s: %s\n", where, v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d guideline violations\n", errors, warnings)

	// Regenerate team sheets from master schedule
	if !strings.EqualFold(filepath.Ext(schedulePath), ".json") {
		if err := excel.UpdateTeamSheets(schedulePath, cfg.Teams); err != nil {
			return fmt.Errorf("updating team sheets: %w", err)
		}
		fmt.Printf("✓ Team sheets updated in %s\n", schedulePath)
	}

	if errors > 0 {
		return fmt.Errorf("%d constraint violations found", errors)
	}
	return nil
}
