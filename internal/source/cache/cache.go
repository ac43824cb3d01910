// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cache loads previously saved object records back into a registry.
// Cached objects are shown as missing and prefer any live object of the same
// id, so they only stand in for keys whose backend is gone.
package cache

import (
	"context"
	"fmt"

	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/registry"
	"github.com/toeirei/keyview/internal/source"
	"github.com/toeirei/keyview/internal/store"
)

// Kind is the object kind of cached records.
const Kind object.Kind = "cache"

// Name is the source name of the cache backend.
const Name = "cache"

// Loader reads records for the cache. *store.Store implements it.
type Loader interface {
	Load(ctx context.Context) ([]store.Record, error)
}

// Cache is the database backend.
type Cache struct {
	loader Loader
	src    *source.Source
}

// New returns a cache backend reading from loader into reg.
func New(reg *registry.Registry, loader Loader) *Cache {
	c := &Cache{loader: loader, src: source.New(Name, reg)}
	c.src.PreferOthers(func(o *object.Object) bool {
		return o.Kind() != Kind
	})
	return c
}

// Source returns the object source of the cached objects.
func (c *Cache) Source() *source.Source { return c.src }

// Reload reads the stored records and reconciles the registry with them.
// Records of the same id seen in several sources collapse into one cached
// object, labelled after the first.
func (c *Cache) Reload(ctx context.Context) (source.Stats, error) {
	recs, err := c.loader.Load(ctx)
	if err != nil {
		return source.Stats{}, fmt.Errorf("load cache: %w", err)
	}
	want := make(map[string]*object.Object, len(recs))
	for _, r := range recs {
		if _, ok := want[r.ID]; ok {
			continue
		}
		want[r.ID] = r.Object(Kind, object.WithLocation(object.LocationMissing))
	}
	return c.src.Reconcile(want)
}

// Close removes the cached objects from the registry.
func (c *Cache) Close() {
	c.src.Close()
}
