package sqlite

import (
	"database/sql/driver"
	"fmt"
	"sync"

	sqlite "modernc.org/sqlite"

	"github.com/snipstash/snipstash-server/internal/normalize"
)

// foldFunc is the SQL name of normalize.Fold. Search and alphabetical
// ordering compare folded values so the store agrees with domain.Filter.
const foldFunc = "snip_fold"

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions installs the package's scalar functions in the driver.
// Registration is process-wide and must happen before connections open.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, foldValue)
	})
	return registerErr
}

func foldValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s expects 1 argument", foldFunc)
	}
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return normalize.Fold(v), nil
	case []byte:
		return normalize.Fold(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", foldFunc, v)
	}
}
