// Copyright 2026 ExtScan Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

package cache

import (
	"encoding/json"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/integrity"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
	"github.com/extscan-toolkit/extscan-runner/pkg/remote"
	"github.com/extscan-toolkit/extscan-runner/pkg/store"
)

// Manager owns the scan result cache. Reads are safe from any goroutine;
// mutations go through the store's single writer path. An entry exists
// only for a scan that completed successfully.
type Manager struct {
	store  *store.Store
	signer *integrity.Signer
	log    observability.Logger

	now func() time.Time // test hook
}

// Open opens the cache at path, recovering from corruption and migrating
// older schemas forward before first use. A store that cannot be opened
// at all is a fatal startup error.
func Open(path string, signer *integrity.Signer, log observability.Logger) (*Manager, error) {
	if log == nil {
		log = observability.Nop()
	}

	st, err := store.Open(path, log)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:  st,
		signer: signer,
		log:    log,
		now:    time.Now,
	}

	if err := m.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Get returns the cached result for key, or a miss when the entry is
// absent, older than maxAge, or fails signature verification. A failed
// verification is logged as an integrity violation but never surfaces as
// an error: the item simply gets rescanned. A negative maxAge disables
// the age check.
func (m *Manager) Get(key Key, maxAge time.Duration) (*remote.ScanResult, bool) {
	raw, ok, err := m.store.Get(key.encode())
	if err != nil {
		m.log.Warn("cache read failed", observability.String("extension", key.ExtensionID), observability.Err(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var rec entryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		m.log.Warn("cache entry undecodable, treating as miss",
			observability.String("extension", key.ExtensionID),
			observability.Err(err))
		return nil, false
	}

	if !m.signer.Verify(rec.Payload, rec.Signature) {
		m.log.Error("cache integrity violation, treating entry as absent",
			observability.String("extension", key.ExtensionID),
			observability.String("version", key.Version))
		return nil, false
	}

	if maxAge >= 0 && m.now().Sub(rec.CachedAt) > maxAge {
		return nil, false
	}

	var result remote.ScanResult
	if err := json.Unmarshal(rec.Payload, &result); err != nil {
		m.log.Warn("cache payload undecodable, treating as miss",
			observability.String("extension", key.ExtensionID),
			observability.Err(err))
		return nil, false
	}
	return &result, true
}

// Save persists a successful scan result, replacing any prior entry for
// the key. Callers must never pass failed or partial results.
func (m *Manager) Save(key Key, result *remote.ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.ValidationError("failed to serialize scan result", err)
	}

	rec := entryRecord{
		ExtensionID:       key.ExtensionID,
		Version:           key.Version,
		Payload:           payload,
		CachedAt:          m.now().UTC(),
		SchemaVersion:     CurrentSchemaVersion,
		Signature:         m.signer.Sign(payload),
		RiskLevel:         result.RiskLevel,
		SecurityScore:     result.SecurityScore,
		DependenciesCount: result.DependenciesCount,
		PublisherVerified: result.PublisherVerified,
		HasRiskFactors:    len(result.RiskFactors) > 0,
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.StoreError("failed to encode cache entry", err)
	}
	return m.store.Put(key.encode(), raw)
}

// Clear removes all entries and returns the count removed. The schema
// meta row survives.
func (m *Manager) Clear() (int, error) {
	batch := new(leveldb.Batch)
	count := 0
	err := m.store.IteratePrefix([]byte(entryPrefix), func(k, _ []byte) error {
		key := make([]byte, len(k))
		copy(key, k)
		batch.Delete(key)
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if err := m.store.WriteBatch(batch); err != nil {
		return 0, err
	}
	return count, nil
}

// Stats aggregates entry counts, the risk-level breakdown, and the age
// range of the cache.
func (m *Manager) Stats() (CacheStats, error) {
	stats := CacheStats{ByRiskLevel: make(map[string]int)}

	err := m.store.IteratePrefix([]byte(entryPrefix), func(_, v []byte) error {
		var rec entryRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			// Undecodable rows are invisible to Get as well; skip them
			// rather than failing the whole aggregate.
			return nil
		}
		stats.TotalEntries++
		stats.ByRiskLevel[rec.RiskLevel]++
		if stats.Oldest.IsZero() || rec.CachedAt.Before(stats.Oldest) {
			stats.Oldest = rec.CachedAt
		}
		if rec.CachedAt.After(stats.Newest) {
			stats.Newest = rec.CachedAt
		}
		return nil
	})
	if err != nil {
		return CacheStats{}, err
	}
	return stats, nil
}
