// Package seed loads a restaurant profile and menu from YAML and writes
// them to a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"restaurant-queue/models"
	"restaurant-queue/store"
)

//go:embed default.yaml
var defaultSeed []byte

type Profile struct {
	Name             string `yaml:"name"`
	TotalTables      int    `yaml:"total_tables"`
	OccupiedTables   int    `yaml:"occupied_tables"`
	AvgDineInMinutes int    `yaml:"avg_dine_in_minutes"`
}

type MenuItem struct {
	Name                 string `yaml:"name"`
	Description          string `yaml:"description"`
	Price                string `yaml:"price"`
	EstimatedPrepMinutes *int   `yaml:"estimated_prep_minutes"`
	Available            *bool  `yaml:"available"`
}

// File is the on-disk seed document.
type File struct {
	Profile *Profile   `yaml:"profile"`
	Menu    []MenuItem `yaml:"menu"`
}

// Result reports what Apply wrote.
type Result struct {
	ProfileSaved bool
	MenuCreated  int
	MenuSkipped  int
}

// Load reads a seed file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in seed shipped with the binary.
func Default() (*File, error) {
	return Parse(defaultSeed)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal seed: %w", err)
	}
	return &f, nil
}

func (p *Profile) model() models.RestaurantProfile {
	out := models.DefaultProfile()
	if p.Name != "" {
		out.Name = p.Name
	}
	if p.TotalTables != 0 {
		out.TotalTables = p.TotalTables
	}
	out.OccupiedTables = p.OccupiedTables
	if p.AvgDineInMinutes != 0 {
		out.AvgDineInMinutes = p.AvgDineInMinutes
	}
	return out
}

func (m MenuItem) model() (models.MenuItem, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(m.Price))
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("menu item %q: invalid price %q", m.Name, m.Price)
	}
	item := models.MenuItem{
		Name:                 strings.TrimSpace(m.Name),
		Description:          m.Description,
		Price:                price,
		EstimatedPrepMinutes: models.DefaultPrepMinutes,
		IsAvailable:          true,
	}
	if m.EstimatedPrepMinutes != nil {
		item.EstimatedPrepMinutes = *m.EstimatedPrepMinutes
	}
	if m.Available != nil {
		item.IsAvailable = *m.Available
	}
	return item, nil
}

// Apply writes f to s. The profile is overwritten when present in f. Menu
// items whose name already exists are left alone, so Apply can be rerun.
func Apply(ctx context.Context, s store.Store, f *File) (Result, error) {
	var res Result

	if f.Profile != nil {
		p := f.Profile.model()
		if err := s.SaveProfile(ctx, &p); err != nil {
			return res, err
		}
		res.ProfileSaved = true
	}

	existing, err := s.ListMenuItems(ctx, false)
	if err != nil {
		return res, err
	}
	names := make(map[string]bool, len(existing))
	for _, it := range existing {
		names[strings.ToLower(it.Name)] = true
	}

	for _, m := range f.Menu {
		item, err := m.model()
		if err != nil {
			return res, err
		}
		key := strings.ToLower(item.Name)
		if names[key] {
			res.MenuSkipped++
			continue
		}
		if err := s.CreateMenuItem(ctx, &item); err != nil {
			return res, fmt.Errorf("menu item %q: %w", item.Name, err)
		}
		names[key] = true
		res.MenuCreated++
	}
	return res, nil
}
