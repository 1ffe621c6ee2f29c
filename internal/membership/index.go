// Package membership approximates an index over encoded id-list columns.
//
// The store only offers pattern matching, so "rows whose list contains X" is
// expressed as a disjunction of LIKE patterns, one per position X can occupy
// in the canonical "[a, b, c]" layout produced by codec.EncodeIDList:
//
//	first   "[X, %"
//	middle  "% X,%"
//	last    "% X]%"
//	only    "[X]"
//
// Each pattern is anchored on both sides by a bracket, a space or a comma, so
// for canonically encoded columns a target such as 1 does not match a stored
// 13 or 21. Rows written in any other layout may still slip through or be
// missed; Contains decodes a row and compares ids exactly, and repositories
// apply it to every pattern match.
package membership

import (
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/gymclub/internal/codec"
)

// Patterns returns the LIKE patterns that together match every canonically
// encoded list containing id.
func Patterns(id int64) []string {
	x := strconv.FormatInt(id, 10)
	return []string{
		"[" + x + ", %",
		"% " + x + ",%",
		"% " + x + "]%",
		"[" + x + "]",
	}
}

// Scope restricts a query to rows whose column matches any of Patterns(id).
// column must be a trusted identifier; it is quoted by the dialect.
func Scope(column string, id int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		pats := Patterns(id)
		exprs := make([]clause.Expression, 0, len(pats))
		for _, p := range pats {
			exprs = append(exprs, clause.Like{Column: clause.Column{Name: column}, Value: p})
		}
		return db.Where(clause.Or(exprs...))
	}
}

// Contains decodes encoded and reports whether it holds id exactly.
func Contains(encoded string, id int64) (bool, error) {
	ids, err := codec.DecodeIDList(encoded)
	if err != nil {
		return false, err
	}
	for _, v := range ids {
		if v == id {
			return true, nil
		}
	}
	return false, nil
}
