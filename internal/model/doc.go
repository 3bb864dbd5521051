// Package model defines the entity records persisted by the catalog.
//
// Five entity kinds exist, each mapped 1:1 to a store table:
//   - Setting: standalone key/value configuration, keyed by a fixed SettingID
//   - Log: standalone, append-only application log entries
//   - Image: parent record owning Items and Prompts
//   - Item: child of an Image, one per detected inventory item
//   - Prompt: child of an Image, captures one analysis request/response
//
// # Identity
//
// Records are constructed in memory with a generated identifier and creation
// timestamp, then persisted through a record service. Identifiers carry a
// three-letter table prefix followed by a UUIDv7 ("img-0190c5e2-..."), except
// Settings, whose identifier is the SettingID name itself.
//
// Timestamps are Unix milliseconds. Child records never default their parent
// reference: constructing an Item or Prompt without an ImageID yields a record
// that fails validation.
package model
