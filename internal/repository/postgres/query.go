package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/facturo/facturo/internal/postgres"
	"github.com/facturo/facturo/internal/types"
)

// namedArgs are the parameters of a named query
type namedArgs map[string]interface{}

// tenantArgs seeds the parameters every tenant scoped query needs
func tenantArgs(ctx context.Context) namedArgs {
	return namedArgs{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}
}

func selectNamed(ctx context.Context, db *postgres.DB, dest interface{}, query string, args namedArgs) error {
	q := db.GetQuerier(ctx)
	bound, values, err := q.BindNamed(query, map[string]interface{}(args))
	if err != nil {
		return err
	}
	return q.SelectContext(ctx, dest, bound, values...)
}

func getNamed(ctx context.Context, db *postgres.DB, dest interface{}, query string, args namedArgs) error {
	q := db.GetQuerier(ctx)
	bound, values, err := q.BindNamed(query, map[string]interface{}(args))
	if err != nil {
		return err
	}
	return q.GetContext(ctx, dest, bound, values...)
}

// execNamed runs a write and returns the number of affected rows
func execNamed(ctx context.Context, db *postgres.DB, query string, args interface{}) (int64, error) {
	result, err := db.GetQuerier(ctx).NamedExecContext(ctx, query, args)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// inClause expands values into named placeholders for an IN list
func inClause[T ~string](args namedArgs, name string, values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		key := fmt.Sprintf("%s_%d", name, i)
		args[key] = string(v)
		names[i] = ":" + key
	}
	return strings.Join(names, ", ")
}

// paginate appends ordering and limits taken from the filter
func paginate(query string, args namedArgs, f *types.QueryFilter, orderColumns ...string) string {
	direction := "DESC"
	if f.GetOrder() == types.OrderAsc {
		direction = "ASC"
	}
	order := make([]string, len(orderColumns))
	for i, c := range orderColumns {
		order[i] = c + " " + direction
	}
	query += " ORDER BY " + strings.Join(order, ", ")

	if f.IsUnlimited() {
		return query
	}
	args["limit"] = f.GetLimit()
	args["offset"] = f.GetOffset()
	return query + " LIMIT :limit OFFSET :offset"
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}
