// Copyright 2026 ExtScan Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

package cache

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
	"github.com/extscan-toolkit/extscan-runner/pkg/remote"
)

// A migration transforms every entry from one schema version to the
// next. Steps are applied in sequence, each committed as a single batch:
// either every entry moves forward together with the version bump, or
// none do. Adding a future v3 means appending one more step here.
type migration struct {
	from, to  int
	transform func(raw []byte) ([]byte, error)
}

var migrations = []migration{
	{from: 1, to: 2, transform: migrateEntryV1toV2},
}

// Migrate brings the on-disk schema up to CurrentSchemaVersion. A store
// written by a newer build is refused rather than guessed at.
func (m *Manager) Migrate() error {
	version, err := m.schemaVersion()
	if err != nil {
		return err
	}
	if version == CurrentSchemaVersion {
		return nil
	}
	if version > CurrentSchemaVersion {
		return errors.StoreError(
			fmt.Sprintf("store schema v%d is newer than supported v%d", version, CurrentSchemaVersion), nil)
	}

	for version < CurrentSchemaVersion {
		step, ok := findMigration(version)
		if !ok {
			return errors.StoreError(fmt.Sprintf("no migration path from schema v%d", version), nil)
		}
		if err := m.applyMigration(step); err != nil {
			return err
		}
		version = step.to
	}
	return nil
}

func findMigration(from int) (migration, bool) {
	for _, step := range migrations {
		if step.from == from {
			return step, true
		}
	}
	return migration{}, false
}

// applyMigration rewrites every entry through the step's transform and
// commits the results plus the version bump in one batch. Any transform
// error aborts the whole migration before anything is written.
func (m *Manager) applyMigration(step migration) error {
	batch := new(leveldb.Batch)
	count := 0

	err := m.store.IteratePrefix([]byte(entryPrefix), func(k, v []byte) error {
		transformed, err := step.transform(v)
		if err != nil {
			return errors.StoreError(
				fmt.Sprintf("migration v%d->v%d failed on %s", step.from, step.to, string(k)), err)
		}
		key := make([]byte, len(k))
		copy(key, k)
		batch.Put(key, transformed)
		count++
		return nil
	})
	if err != nil {
		return err
	}

	batch.Put([]byte(metaSchemaKey), []byte(strconv.Itoa(step.to)))
	if err := m.store.WriteBatch(batch); err != nil {
		return err
	}

	m.log.Info("migrated cache schema",
		observability.Int("from", step.from),
		observability.Int("to", step.to),
		observability.Int("entries", count))
	return nil
}

// schemaVersion reads the stored schema version. An empty store is
// stamped with the current version; a store holding entries but no meta
// row predates schema tagging and is treated as v1.
func (m *Manager) schemaVersion() (int, error) {
	raw, ok, err := m.store.Get([]byte(metaSchemaKey))
	if err != nil {
		return 0, err
	}
	if !ok {
		count, err := m.store.CountPrefix([]byte(entryPrefix))
		if err != nil {
			return 0, err
		}
		if count > 0 {
			return 1, nil
		}
		if err := m.store.Put([]byte(metaSchemaKey), []byte(strconv.Itoa(CurrentSchemaVersion))); err != nil {
			return 0, err
		}
		return CurrentSchemaVersion, nil
	}

	version, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, errors.StoreError("unreadable schema version row", err)
	}
	return version, nil
}

// migrateEntryV1toV2 re-derives the denormalized index fields that v1
// entries never carried. Payload bytes are untouched, so the original
// signature stays valid.
func migrateEntryV1toV2(raw []byte) ([]byte, error) {
	var rec entryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}

	var result remote.ScanResult
	if err := json.Unmarshal(rec.Payload, &result); err != nil {
		return nil, err
	}

	rec.SchemaVersion = 2
	rec.RiskLevel = result.RiskLevel
	rec.SecurityScore = result.SecurityScore
	rec.DependenciesCount = result.DependenciesCount
	rec.PublisherVerified = result.PublisherVerified
	rec.HasRiskFactors = len(result.RiskFactors) > 0

	return json.Marshal(rec)
}
