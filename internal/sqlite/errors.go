package sqlite

import (
	"errors"
	"strings"
)

// Extended SQLite result codes for constraint failures.
const (
	codeConstraintForeignKey = 787
	codeConstraintUnique     = 2067
)

// codedError matches driver errors that expose the SQLite result code.
type codedError interface {
	Code() int
}

func constraintFailed(err error, code int, text string) bool {
	if err == nil {
		return false
	}
	var coded codedError
	if errors.As(err, &coded) {
		return coded.Code() == code
	}
	return strings.Contains(err.Error(), text)
}

func isForeignKeyViolation(err error) bool {
	return constraintFailed(err, codeConstraintForeignKey, "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	return constraintFailed(err, codeConstraintUnique, "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n bound row ids.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
