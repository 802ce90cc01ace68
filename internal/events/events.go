// Package events is the change feed of the store: insert/update/delete notifications
// per table, optionally filtered by column equality.
package events

import (
	"context"
	"encoding/json"
)

type ChangeType string

const (
	Insert ChangeType = "insert"
	Update ChangeType = "update"
	Delete ChangeType = "delete"
)

// Change is one committed row change. Columns carries the filterable column values of
// the new row; Record is the full row as JSON. Consumers must not treat Record as truth.
type Change struct {
	Table   string            `json:"table"`
	Type    ChangeType        `json:"type"`
	Columns map[string]string `json:"columns"`
	Record  json.RawMessage   `json:"record"`
}

// Filter selects changes. Empty Type matches any type; empty Column matches any row.
type Filter struct {
	Table  string
	Type   ChangeType
	Column string
	Value  string
}

func (f Filter) Matches(c Change) bool {
	if f.Table != c.Table {
		return false
	}
	if f.Type != "" && f.Type != c.Type {
		return false
	}
	if f.Column != "" && c.Columns[f.Column] != f.Value {
		return false
	}
	return true
}

type Handler func(Change)

type Subscription interface {
	Unsubscribe() error
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

type Bus interface {
	Publisher
	Subscribe(f Filter, h Handler) (Subscription, error)
	Close() error
}

// NewChange builds a Change, marshalling record.
func NewChange(table string, typ ChangeType, columns map[string]string, record any) (Change, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Change{}, err
	}
	return Change{Table: table, Type: typ, Columns: columns, Record: raw}, nil
}
