// Package prompt assembles domain context blocks that precede a user prompt.
package prompt

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"storyd/pkg/types"
)

// CharacterLookup resolves a character by ID.
type CharacterLookup interface {
	Character(id uuid.UUID) (types.Character, bool)
}

// PlotPointLookup resolves a plot point by ID.
type PlotPointLookup interface {
	PlotPoint(id uuid.UUID) (types.PlotPoint, bool)
}

const (
	characterHeader = "--- Character Information (for context) ---"
	plotHeader      = "--- Plot Point Information (for context) ---"
	sectionFooter   = "-----------------------------------------"
)

// Assembler renders character and plot-point context. It is pure over its
// lookups: same stores plus same ID lists yield the same text.
type Assembler struct {
	characters CharacterLookup
	plots      PlotPointLookup
}

// NewAssembler builds an Assembler over the given lookups.
func NewAssembler(characters CharacterLookup, plots PlotPointLookup) *Assembler {
	return &Assembler{characters: characters, plots: plots}
}

// Assemble renders the character block followed by the plot-point block.
// Unresolvable IDs are skipped one by one; a section whose every ID failed to
// resolve is wholly absent. The returned text ends with a blank line so a raw
// prompt can be appended directly, or is empty when nothing resolved.
func (a *Assembler) Assemble(characterIDs, plotPointIDs []uuid.UUID) string {
	var b strings.Builder
	b.WriteString(a.characterBlock(characterIDs))
	b.WriteString(a.plotBlock(plotPointIDs))
	return b.String()
}

func (a *Assembler) characterBlock(ids []uuid.UUID) string {
	if len(ids) == 0 || a.characters == nil {
		return ""
	}
	var lines []string
	for _, id := range ids {
		c, ok := a.characters.Character(id)
		if !ok {
			log.Debug().Stringer("character_id", id).Msg("context: skipping unresolved character")
			continue
		}
		lines = append(lines, renderCharacter(c))
	}
	return section(characterHeader, lines)
}

func (a *Assembler) plotBlock(ids []uuid.UUID) string {
	if len(ids) == 0 || a.plots == nil {
		return ""
	}
	var lines []string
	for _, id := range ids {
		p, ok := a.plots.PlotPoint(id)
		if !ok {
			log.Debug().Stringer("plot_point_id", id).Msg("context: skipping unresolved plot point")
			continue
		}
		lines = append(lines, renderPlotPoint(p))
	}
	return section(plotHeader, lines)
}

// renderCharacter emits one comma-separated line: name first, then the
// remaining fields in fixed order, each only when non-empty.
func renderCharacter(c types.Character) string {
	parts := []string{"Name: " + c.Name}
	for _, f := range []struct{ label, value string }{
		{"Description", c.Description},
		{"Traits", c.Traits},
		{"Motivations", c.Motivations},
		{"Appearance", c.PhysicalAppearance},
		{"Status", c.Status},
	} {
		if f.value != "" {
			parts = append(parts, f.label+": "+f.value)
		}
	}
	return strings.Join(parts, ", ")
}

// renderPlotPoint emits one line; status is mentioned only when it differs
// from the default "Planned" state.
func renderPlotPoint(p types.PlotPoint) string {
	parts := []string{"Plot Point: " + p.Title}
	if p.Description != "" {
		parts = append(parts, "Description: "+p.Description)
	}
	if p.Type != "" {
		parts = append(parts, "Type: "+p.Type)
	}
	if p.Status != "" && p.Status != types.PlotStatusDefault {
		parts = append(parts, "Status: "+p.Status)
	}
	return strings.Join(parts, ", ")
}

func section(header string, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return header + "\n" + strings.Join(lines, "\n") + "\n" + sectionFooter + "\n\n"
}
