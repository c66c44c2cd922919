// Package responder produces the bot's reply when the staged dialogue
// hands off: an ordered chain of strategies, from learned patterns down
// to an LLM completion, each tried in turn.
package responder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTemplateNotFound = errors.New("prompt template not found")

// Template is a stored system-prompt template.
type Template struct {
	Name    string
	Stage   string
	Content string
	Active  bool
}

// TemplateRepository provides data access for prompt templates.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// ActiveForStage returns the active template for a persona/stage key,
// falling back to the default template when none is stage-specific.
func (r *TemplateRepository) ActiveForStage(ctx context.Context, stage string) (Template, error) {
	var t Template
	err := r.pool.QueryRow(ctx, `
		SELECT name, stage, content, active
		FROM prompt_templates
		WHERE active = true AND (stage = $1 OR stage = '')
		ORDER BY (stage = $1) DESC, updated_at DESC
		LIMIT 1
	`, stage).Scan(&t.Name, &t.Stage, &t.Content, &t.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrTemplateNotFound
	}
	return t, err
}

// Vars are the substitution values available to templates.
type Vars struct {
	LeadName  string
	LeadEmail string
	LeadPhone string
	BotType   string
	Now       time.Time
}

// Render substitutes {{placeholder}} variables into template content.
func Render(content string, vars Vars) string {
	replacer := strings.NewReplacer(
		"{{leadName}}", nonEmpty(vars.LeadName, "there"),
		"{{leadEmail}}", vars.LeadEmail,
		"{{leadPhone}}", vars.LeadPhone,
		"{{botType}}", vars.BotType,
		"{{currentDate}}", vars.Now.Format("1/2/2006"),
		"{{currentTime}}", vars.Now.Format("3:04:05 PM"),
	)
	return replacer.Replace(content)
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
