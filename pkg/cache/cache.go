// Copyright 2026 ExtScan Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package cache provides the keyed, versioned, expiring store for scan
// results, with integrity protection and schema migration.
package cache

import (
	"encoding/json"
	"time"
)

// CurrentSchemaVersion is the on-disk schema this build reads and writes.
// Older stores are migrated forward on open.
const CurrentSchemaVersion = 2

// Key identifies a cache entry. A version bump produces a new key, which
// implicitly invalidates the previous version's entry.
type Key struct {
	ExtensionID string
	Version     string
}

// encode produces the row key. The "e:" prefix keeps entries separate
// from the meta rows.
func (k Key) encode() []byte {
	return []byte(entryPrefix + k.ExtensionID + "@" + k.Version)
}

const (
	entryPrefix   = "e:"
	metaSchemaKey = "meta:schema"
)

// entryRecord is the persisted envelope around a serialized ScanResult.
// Payload stays opaque; the denormalized fields exist for fast filtering
// without deserializing every payload.
type entryRecord struct {
	ExtensionID   string          `json:"extension_id"`
	Version       string          `json:"version"`
	Payload       json.RawMessage `json:"payload"`
	CachedAt      time.Time       `json:"cached_at"`
	SchemaVersion int             `json:"schema_version"`
	Signature     []byte          `json:"signature"`

	RiskLevel         string  `json:"risk_level"`
	SecurityScore     float64 `json:"security_score"`
	DependenciesCount int     `json:"dependencies_count"`
	PublisherVerified bool    `json:"publisher_verified"`
	HasRiskFactors    bool    `json:"has_risk_factors"`
}

// CacheStats summarizes the store contents.
type CacheStats struct {
	TotalEntries int            `json:"total_entries"`
	ByRiskLevel  map[string]int `json:"by_risk_level"`
	Oldest       time.Time      `json:"oldest,omitempty"`
	Newest       time.Time      `json:"newest,omitempty"`
}
