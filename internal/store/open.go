package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Open creates the configured store backend and runs migrations.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "", "sqlite":
		st, err = NewSQLite(databaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, databaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
