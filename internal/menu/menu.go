// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package menu builds the site menu from a YAML section list and the
// category hierarchies visible to the current visitor.
package menu

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"taxportal/internal/models"
	"taxportal/internal/navigation"
)

// SurfaceName scopes the menu's own copy of each hierarchy.
const SurfaceName = "menu"

//go:embed menu.yaml
var defaultDefinition []byte

// Section is one top-level menu entry.
type Section struct {
	Label      string `yaml:"label"`
	Path       string `yaml:"path"`
	Resource   string `yaml:"resource"`
	Newsletter bool   `yaml:"newsletter"`
}

// Definition is the parsed menu file.
type Definition struct {
	Sections []Section `yaml:"sections"`
}

// Load reads the menu definition from path, or the embedded default when
// path is empty.
func Load(path string) (*Definition, error) {
	raw := defaultDefinition
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read menu file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and validates a menu definition.
func Parse(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	if len(def.Sections) == 0 {
		return nil, errors.New("parse menu: no sections")
	}
	for i, s := range def.Sections {
		if strings.TrimSpace(s.Label) == "" {
			return nil, fmt.Errorf("parse menu: section %d has no label", i)
		}
		if !strings.HasPrefix(s.Path, "/") {
			return nil, fmt.Errorf("parse menu: section %q path must start with /", s.Label)
		}
	}
	return &def, nil
}

// Link is a rendered menu link.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// CategoryLink is a category with its subcategory links.
type CategoryLink struct {
	Link
	Subcategories []Link `json:"subcategories,omitempty"`
}

// Entry is a top-level section as the visitor sees it.
type Entry struct {
	Link
	Categories []CategoryLink `json:"categories,omitempty"`
}

// Menu builds per-visitor menus.
type Menu struct {
	def               *Definition
	hier              *navigation.Hierarchies
	newsletterEnabled bool
}

// New creates a Menu and registers the hierarchy scope of every section.
func New(def *Definition, hier *navigation.Hierarchies, newsletterEnabled bool) *Menu {
	for _, s := range def.Sections {
		if s.Resource != "" {
			hier.Register(SurfaceName, s.Resource)
		}
	}
	return &Menu{def: def, hier: hier, newsletterEnabled: newsletterEnabled}
}

// Sections returns the configured sections.
func (m *Menu) Sections() []Section { return m.def.Sections }

// Build returns the menu for sess. Hierarchies of all sections are
// fetched in parallel; a failing section degrades to a plain link.
func (m *Menu) Build(ctx context.Context, sess *navigation.Session) ([]Entry, error) {
	entries := make([]Entry, len(m.def.Sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, s := range m.def.Sections {
		entries[i] = Entry{Link: Link{Label: s.Label, Href: s.Path}}
		if s.Resource == "" {
			continue
		}
		g.Go(func() error {
			cats := sess.Visible(gctx, SurfaceName, s.Resource)
			entries[i].Categories = m.categoryLinks(s, cats)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build menu: %w", err)
	}
	return entries, nil
}

func (m *Menu) categoryLinks(s Section, cats models.Hierarchy) []CategoryLink {
	out := make([]CategoryLink, 0, len(cats)+1)
	var base models.Selection
	for _, c := range cats {
		sel := base.WithCategory(c.ID)
		cl := CategoryLink{Link: Link{Label: c.Name, Href: navigation.Href(s.Path, sel)}}
		for _, sub := range c.Children {
			cl.Subcategories = append(cl.Subcategories, Link{
				Label: sub.Name,
				Href:  navigation.Href(s.Path, sel.WithSubcategory(sub.ID)),
			})
		}
		out = append(out, cl)
	}
	if s.Newsletter && m.newsletterEnabled {
		out = append(out, CategoryLink{Link: Link{
			Label: "Newsletter",
			Href:  navigation.Href(s.Path, base.WithNewsletter()),
		}})
	}
	return out
}
