// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"time"

	"github.com/toeirei/keyview/internal/object"
	"github.com/uptrace/bun"
)

// Record is the persisted form of an object. It doubles as the entry
// format of exports.
type Record struct {
	bun.BaseModel `bun:"table:objects" json:"-"`

	ID       string    `bun:"id,pk,type:varchar(191)" json:"id"`
	Source   string    `bun:"source,pk,type:varchar(191)" json:"source,omitempty"`
	Kind     string    `bun:"kind,notnull" json:"kind,omitempty"`
	Label    string    `bun:"label" json:"label"`
	Nickname string    `bun:"nickname" json:"nickname,omitempty"`
	Icon     string    `bun:"icon" json:"icon,omitempty"`
	Location int       `bun:"location,notnull" json:"location"`
	Usage    int       `bun:"key_usage,notnull" json:"usage"`
	Flags    int64     `bun:"flags,notnull" json:"flags"`
	SeenAt   time.Time `bun:"seen_at,notnull" json:"seen_at"`
}

// RecordOf captures the current state of o. seen is stored as the time the
// object was observed.
func RecordOf(o *object.Object, seen time.Time) Record {
	rec := Record{
		ID:       string(o.ID()),
		Kind:     string(o.Kind()),
		Label:    o.Label(),
		Nickname: o.Nickname(),
		Icon:     o.Icon(),
		Location: int(o.Location()),
		Usage:    int(o.Usage()),
		Flags:    int64(o.Flags()),
		SeenAt:   seen.UTC(),
	}
	if src := o.Source(); src != nil {
		rec.Source = src.Name()
	}
	return rec
}

// Object builds a fresh, unregistered object from the record. kind replaces
// the recorded kind when not empty.
func (r Record) Object(kind object.Kind, opts ...object.Option) *object.Object {
	if kind == "" {
		kind = object.Kind(r.Kind)
	}
	base := []object.Option{
		object.WithKind(kind),
		object.WithID(object.ID(r.ID)),
		object.WithLabel(r.Label),
		object.WithLocation(object.Location(r.Location)),
		object.WithUsage(object.Usage(r.Usage)),
		object.WithFlags(object.Flags(r.Flags)),
	}
	o := object.New(append(base, opts...)...)
	if r.Nickname != "" && r.Nickname != r.Label {
		o.SetNickname(r.Nickname)
	}
	if r.Icon != "" {
		o.SetIcon(r.Icon)
	}
	return o
}

type recordKey struct{ id, source string }

// Merge collapses records sharing (id, source) into one, keeping the first
// record's order and text fields. Flags are or-ed; location, usage and
// seen time take the highest value. A key listed in two files of the same
// directory yields such pairs.
func Merge(recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	at := make(map[recordKey]int, len(recs))
	for _, r := range recs {
		k := recordKey{r.ID, r.Source}
		i, ok := at[k]
		if !ok {
			at[k] = len(out)
			out = append(out, r)
			continue
		}
		m := &out[i]
		m.Flags |= r.Flags
		m.Location = max(m.Location, r.Location)
		m.Usage = max(m.Usage, r.Usage)
		if r.SeenAt.After(m.SeenAt) {
			m.SeenAt = r.SeenAt
		}
	}
	return out
}
