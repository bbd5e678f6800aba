package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// uniqueViolation はerrが一意制約違反であれば違反した制約名を返す。
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if string(pqErr.Code) != pgerrcode.UniqueViolation {
		return "", false
	}
	return pqErr.Constraint, true
}
