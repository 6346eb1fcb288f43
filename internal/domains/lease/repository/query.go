package repository

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

var dialect = goqu.Dialect("postgres")

const (
	leasesTable = "book_leases"
	booksTable  = "books"
)

var leaseColumns = []interface{}{"id", "book_id", "holder_id", "leased_at", "returned_at"}

// latestLeases is the one definition of "latest record per book":
// DISTINCT ON (book_id) ordered by leased_at DESC, id DESC.
// Single-book and bulk reads both derive from it.
func latestLeases() *goqu.SelectDataset {
	return dialect.From(leasesTable).
		Select(leaseColumns...).
		Distinct("book_id").
		Order(
			goqu.C("book_id").Asc(),
			goqu.C("leased_at").Desc(),
			goqu.C("id").Desc(),
		)
}

func latestLeaseSQL(bookID int64) (string, []interface{}, error) {
	return latestLeases().
		Where(goqu.C("book_id").Eq(bookID)).
		Prepared(true).
		ToSQL()
}

// bookHeadsSQL left joins every book in scope to its latest lease.
// Books without a ledger come back with NULL lease columns.
func bookHeadsSQL(filter HeadFilter) (string, []interface{}, error) {
	ds := dialect.From(goqu.T(booksTable).As("b")).
		LeftJoin(
			latestLeases().As("l"),
			goqu.On(goqu.I("l.book_id").Eq(goqu.I("b.id"))),
		).
		Select(
			goqu.I("b.id"),
			goqu.I("l.id"),
			goqu.I("l.holder_id"),
			goqu.I("l.leased_at"),
			goqu.I("l.returned_at"),
		).
		Order(goqu.I("b.id").Asc())

	if len(filter.BookIDs) > 0 {
		ds = ds.Where(goqu.I("b.id").In(filter.BookIDs))
	}

	return ds.Prepared(true).ToSQL()
}

func listByBookSQL(bookID int64) (string, []interface{}, error) {
	return dialect.From(leasesTable).
		Select(leaseColumns...).
		Where(goqu.C("book_id").Eq(bookID)).
		Order(goqu.C("leased_at").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
}

const (
	lockBookSQL = `SELECT id FROM books WHERE id = $1 FOR UPDATE`

	insertLeaseSQL = `
		INSERT INTO book_leases (book_id, holder_id, leased_at)
		VALUES ($1, $2, $3)
		RETURNING id, book_id, holder_id, leased_at, returned_at
	`

	// only an outstanding record can be returned
	markReturnedSQL = `
		UPDATE book_leases
		SET returned_at = $2
		WHERE id = $1 AND returned_at IS NULL
		RETURNING id, book_id, holder_id, leased_at, returned_at
	`

	leaseExistsSQL = `SELECT EXISTS (SELECT 1 FROM book_leases WHERE id = $1)`
)
