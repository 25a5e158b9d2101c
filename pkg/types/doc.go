// Package types defines the entity types, category references, store
// interfaces, configuration, and error classes shared by the taxa backend
// and the categorize services.
//
// A category reference is one of ID, Name, Resolved or a nested Refs list:
//
//	refs := types.Refs{types.ID(3), types.Name("news"), types.Refs{types.Name("go")}}
//	flat := types.Flatten(refs) // [id=3 name="news" name="go"]
//
// Errors fall into three classes checked with errors.Is: ErrNotFound,
// ErrValidation and ErrStore.
package types
