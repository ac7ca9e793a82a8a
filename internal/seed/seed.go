package seed

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

//go:embed catalogue.yaml
var defaultFS embed.FS

type Catalogue struct {
	Version      int               `yaml:"version"`
	Plans        []PlanSpec        `yaml:"plans"`
	Achievements []AchievementSpec `yaml:"achievements"`
}

type PlanSpec struct {
	ProcessorPlanID string   `yaml:"processor_plan_id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	PriceMinor      int64    `yaml:"price_minor"`
	Currency        string   `yaml:"currency"`
	DurationMonths  int      `yaml:"duration_months"`
	Features        []string `yaml:"features"`
	Active          *bool    `yaml:"active"`
	CatalogueAccess *bool    `yaml:"catalogue_access"`
}

type AchievementSpec struct {
	Code         string `yaml:"code"`
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	IconURL      string `yaml:"icon_url"`
	TriggerType  string `yaml:"trigger_type"`
	TriggerValue int64  `yaml:"trigger_value"`
	Active       *bool  `yaml:"active"`
}

// Load reads the catalogue at path, or the embedded default when path is empty.
func Load(path string) (*Catalogue, error) {
	var (
		raw []byte
		err error
	)
	if strings.TrimSpace(path) == "" {
		raw, err = defaultFS.ReadFile("catalogue.yaml")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read seed catalogue: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse seed catalogue: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogue) Validate() error {
	seen := map[string]bool{}
	for i, p := range c.Plans {
		switch {
		case strings.TrimSpace(p.ProcessorPlanID) == "":
			return fmt.Errorf("plan %d: missing processor_plan_id", i)
		case p.DurationMonths <= 0:
			return fmt.Errorf("plan %s: duration_months must be positive", p.ProcessorPlanID)
		case p.PriceMinor < 0:
			return fmt.Errorf("plan %s: negative price", p.ProcessorPlanID)
		case seen["plan:"+p.ProcessorPlanID]:
			return fmt.Errorf("plan %s: duplicate", p.ProcessorPlanID)
		}
		seen["plan:"+p.ProcessorPlanID] = true
	}
	for i, a := range c.Achievements {
		switch {
		case strings.TrimSpace(a.Code) == "":
			return fmt.Errorf("achievement %d: missing code", i)
		case strings.TrimSpace(a.TriggerType) == "":
			return fmt.Errorf("achievement %s: missing trigger_type", a.Code)
		case a.TriggerValue <= 0:
			return fmt.Errorf("achievement %s: trigger_value must be positive", a.Code)
		case seen["ach:"+a.Code]:
			return fmt.Errorf("achievement %s: duplicate", a.Code)
		}
		seen["ach:"+a.Code] = true
	}
	return nil
}

// Apply upserts every plan and achievement in one transaction. Re-running it
// with the same catalogue leaves the tables unchanged.
func Apply(ctx context.Context, log *logger.Logger, runner aggregates.TxRunner, plans repos.SubscriptionPlanRepo, achievements repos.AchievementRepo, c *Catalogue) error {
	if c == nil {
		return nil
	}
	err := runner.InTx(ctx, func(dbc dbctx.Context) error {
		for _, p := range c.Plans {
			row, err := planRow(p)
			if err != nil {
				return err
			}
			if err := plans.UpsertByProcessorPlanID(dbc, row); err != nil {
				return fmt.Errorf("upsert plan %s: %w", p.ProcessorPlanID, err)
			}
		}
		for _, a := range c.Achievements {
			if err := achievements.UpsertByCode(dbc, achievementRow(a)); err != nil {
				return fmt.Errorf("upsert achievement %s: %w", a.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.With("service", "Seed").Info("catalogue seeded", "plans", len(c.Plans), "achievements", len(c.Achievements))
	return nil
}

func planRow(p PlanSpec) (*types.SubscriptionPlan, error) {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "USD"
	}
	return &types.SubscriptionPlan{
		ProcessorPlanID: strings.TrimSpace(p.ProcessorPlanID),
		Name:            p.Name,
		Description:     p.Description,
		PriceMinor:      p.PriceMinor,
		Currency:        currency,
		DurationMonths:  p.DurationMonths,
		Active:          boolOr(p.Active, true),
		CatalogueAccess: boolOr(p.CatalogueAccess, true),
		Features:        datatypes.JSON(raw),
	}, nil
}

func achievementRow(a AchievementSpec) *types.Achievement {
	return &types.Achievement{
		Code:         strings.TrimSpace(a.Code),
		Title:        a.Title,
		Description:  a.Description,
		IconURL:      a.IconURL,
		TriggerType:  strings.TrimSpace(a.TriggerType),
		TriggerValue: a.TriggerValue,
		Active:       boolOr(a.Active, true),
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
