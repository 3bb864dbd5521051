// Package service implements the Record Service layer over the local store.
//
// One generic Service[T] exists per entity kind, configured by a fixed
// Descriptor. The descriptor decides the kind's table topology:
//
//   - standalone: neither parent nor child tables (settings, logs)
//   - parent: owns child tables (images owns items and prompts)
//   - child: references a parent through a foreign key field (imageId)
//
// # Critical Patterns
//
// Transaction scope:
//   - Every mutation runs in one store transaction spanning the kind's table
//     and its related tables, so cascades and cache maintenance commit or
//     roll back together
//
// Referential integrity:
//   - Removing a parent deletes its children in the same transaction
//   - A parent's lastChild cache is recomputed from the child tables on
//     every child mutation; parent writes never take it from the caller
//   - A child's parent is never defaulted and need not exist yet
//
// Registry:
//   - Registry caches one service per kind, all bound to one store
//   - Callers are handed the registry; there is no package-level default
package service
