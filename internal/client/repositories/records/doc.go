// Package records is the client's local document store.
//
// Each of the seven collections (profiles, transactions, categories, debts,
// investments, bills, notes) lives in one SQLite table keyed by
// (collection, id), with the document kept as JSON. Secondary indexes are
// expression indexes over json_extract, so GetAllByIndex only accepts the
// fields a collection declares (see models.Collection.HasIndex).
//
//	repo := records.NewSQLiteRepository(db)
//	_ = repo.Put(ctx, models.Transactions, rec)
//	txs, _ := repo.GetAllByIndex(ctx, models.Transactions, "profileId", pid)
package records
