// Package categorize is the taxa core: it resolves category references,
// maintains the categories attached to a subject, and lists the subjects
// tagged with a category or any of its descendants.
//
// A Manager is bound to one subject:
//
//	post := categorize.NewManager(backend, types.Subject{Type: "post", ID: 7})
//	_, err := post.Attach(ctx, types.Name("news"), types.Refs{types.ID(3), types.ID(4)})
//	ok, err := post.HasAll(ctx, types.Name("news"))
//
// A Catalog exposes the category side:
//
//	catalog := categorize.NewCatalog(backend)
//	entries, err := catalog.AllEntries(ctx, types.Name("news"), "post")
//
// Attach and Sync run in one transaction, so a reference that fails to
// resolve leaves the subject's associations unchanged.
package categorize
