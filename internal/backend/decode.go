// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package backend

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"taxportal/internal/models"
)

// Wire shapes. Only consumed fields are declared; the rest is ignored.

type rawNode struct {
	Category      rawCategory      `json:"category"`
	Subcategories []rawSubcategory `json:"subcategories"`
}

type rawCategory struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	IsExposed        *bool  `json:"isExposed"`
	DisplayOrder     int    `json:"displayOrder"`
	DisplayType      string `json:"displayType"`
	TargetMemberType string `json:"targetMemberType"`
}

type rawSubcategory struct {
	ID    int       `json:"id"`
	Name  string    `json:"name"`
	Items []rawItem `json:"items"`
}

type rawItem struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	ThumbnailURL  string    `json:"thumbnailUrl"`
	CategoryID    int       `json:"categoryId"`
	SubcategoryID int       `json:"subcategoryId"`
	Author        string    `json:"author"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
}

type rawPage struct {
	Items []rawItem `json:"items"`
	Total int       `json:"total"`
}

func (r rawItem) item() models.Item {
	return models.Item{
		ID:            r.ID,
		Title:         r.Title,
		Summary:       r.Summary,
		ThumbnailURL:  r.ThumbnailURL,
		CategoryID:    r.CategoryID,
		SubcategoryID: r.SubcategoryID,
		Author:        r.Author,
		Body:          r.Content,
		PublishedAt:   r.CreatedAt,
	}
}

func (r rawItem) ref() models.ItemRef {
	return models.ItemRef{ID: r.ID, Title: r.Title, Summary: r.Summary, ThumbnailURL: r.ThumbnailURL}
}

// buildHierarchy drops unexposed categories, orders the rest by display
// order and prepends the "All" subcategory to categories with children.
// A missing isExposed counts as exposed.
func buildHierarchy(raw []rawNode) models.Hierarchy {
	exposed := make([]rawNode, 0, len(raw))
	for _, n := range raw {
		if n.Category.IsExposed != nil && !*n.Category.IsExposed {
			continue
		}
		exposed = append(exposed, n)
	}
	slices.SortStableFunc(exposed, func(a, b rawNode) int {
		return cmp.Compare(a.Category.DisplayOrder, b.Category.DisplayOrder)
	})

	out := make(models.Hierarchy, 0, len(exposed))
	for _, n := range exposed {
		node := models.CategoryNode{
			ID:           n.Category.ID,
			Name:         n.Category.Name,
			Visibility:   visibility(n.Category.TargetMemberType),
			DisplayType:  models.DisplayType(n.Category.DisplayType).Normalize(),
			DisplayOrder: n.Category.DisplayOrder,
		}

		for _, s := range n.Subcategories {
			// 0 is reserved for "all".
			if s.ID == models.AllSubcategories {
				slog.Warn("cms subcategory uses reserved id 0, skipping", "category", n.Category.ID, "name", s.Name)
				continue
			}
			sub := models.SubcategoryNode{ID: s.ID, Name: s.Name}
			for _, it := range s.Items {
				sub.Items = append(sub.Items, it.ref())
			}
			node.Children = append(node.Children, sub)
		}
		if len(node.Children) > 0 {
			all := models.SubcategoryNode{ID: models.AllSubcategories, Name: "All"}
			node.Children = append([]models.SubcategoryNode{all}, node.Children...)
		}

		out = append(out, node)
	}
	return out
}

func visibility(target string) models.Visibility {
	switch target {
	case "", string(models.VisibilityAll):
		return models.VisibilityAll
	default:
		return models.Visibility(target)
	}
}
