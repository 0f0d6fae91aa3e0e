package pg

import "github.com/jackc/pgx/v5/pgtype"

type Package struct {
	PackageID  string             `db:"package_id"`
	Name       string             `db:"name"`
	Title      string             `db:"title"`
	Attributes []byte             `db:"attributes"`
	Divisions  []byte             `db:"divisions"`
	TestTime   int32              `db:"test_time"`
	Ranged     string             `db:"ranged"`
	UpdatedAt  pgtype.Timestamptz `db:"updated_at"`
}

// PackageItem stores the flat item document in Data. Weight lives in its own
// column so adjustments do not rewrite the document.
type PackageItem struct {
	PackageID string `db:"package_id"`
	Position  int32  `db:"position"`
	ItemID    string `db:"item_id"`
	Name      string `db:"name"`
	Weight    int32  `db:"weight"`
	Data      []byte `db:"data"`
}

type PackageSummary struct {
	Package
	ItemCount int64 `db:"item_count"`
}

type ItemWeight struct {
	Name   string
	Weight int32
}
