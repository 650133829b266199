// Package cache persists Power BI API results as versioned JSON entries.
// Each logical dataset (a cache key such as "workspaces") accumulates
// immutable snapshots addressed by a sortable timestamp version; entries are
// stored through a storage.Backend so the cache root can live on the local
// filesystem or in an S3-compatible object store.
package cache
