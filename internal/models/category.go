package models

import (
	"fmt"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// CategoryKind splits categories into spending and earning buckets.
type CategoryKind string

const (
	CategoryKindExpense CategoryKind = "expense"
	CategoryKindIncome  CategoryKind = "income"
)

// Category groups expenses and incomes. Independent entity: everything else
// references it by id.
type Category struct {
	SyncMeta `json:"-"`

	Name  string       `json:"name"`
	Kind  CategoryKind `json:"kind"`
	Color string       `json:"color,omitempty"`
}

func (c *Category) Type() EntityType { return EntityCategory }

func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: category name is required", common.ErrValidation)
	}
	if c.Kind != CategoryKindExpense && c.Kind != CategoryKindIncome {
		return fmt.Errorf("%w: invalid category kind %q", common.ErrValidation, c.Kind)
	}
	return nil
}

func (c *Category) EncodePayload(doc wire.Document) {
	doc["name"] = c.Name
	doc["kind"] = string(c.Kind)
	if c.Color != "" {
		doc["color"] = c.Color
	}
}

func (c *Category) DecodePayload(doc wire.Document) error {
	name := doc.String("name")
	if name == "" {
		return fmt.Errorf("%w: category document missing name", common.ErrDataCorruption)
	}
	c.Name = name
	c.Kind = CategoryKind(doc.String("kind"))
	c.Color = doc.String("color")
	return nil
}

func (c *Category) AuditSnapshot() map[string]any {
	return map[string]any{"name": c.Name, "kind": string(c.Kind)}
}
