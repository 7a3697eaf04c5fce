package postgres

import (
	"fmt"

	"context"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

// TransactionSource streams rows from the transactions ledger table,
// implementing pkg/scan.TransactionSource. The ledger itself (how
// transactions get inserted) is out of this module's scope; this
// adapter only covers the read path the scan worker pool needs.
type TransactionSource struct {
	store *Store
}

// NewTransactionSource wraps store for use as a scan.TransactionSource.
func NewTransactionSource(store *Store) *TransactionSource {
	return &TransactionSource{store: store}
}

func (t *TransactionSource) CountMatching(ctx context.Context, filters models.ScanFilters) (int, error) {
	query := "SELECT COUNT(*) FROM transactions WHERE TRUE"
	args, query := appendTransactionFilters(query, filters)

	var count int
	if err := t.store.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errs.NewStoreError("count_transactions", err)
	}
	return count, nil
}

func (t *TransactionSource) StreamMatching(ctx context.Context, filters models.ScanFilters, visit func(models.Transaction) error) error {
	query := `SELECT transaction_id, amount, currency, from_account, to_account, txn_type, created_at
		FROM transactions WHERE TRUE`
	args, query := appendTransactionFilters(query, filters)
	query += " ORDER BY created_at"

	rows, err := t.store.pool.Query(ctx, query, args...)
	if err != nil {
		return errs.NewStoreError("stream_transactions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txn models.Transaction
		if err := rows.Scan(&txn.TransactionID, &txn.Amount, &txn.Currency,
			&txn.FromAccount, &txn.ToAccount, &txn.Type, &txn.CreatedAt); err != nil {
			return errs.NewStoreError("stream_transactions_scan", err)
		}
		if err := visit(txn); err != nil {
			return err
		}
	}
	return rows.Err()
}

func appendTransactionFilters(query string, filters models.ScanFilters) ([]any, string) {
	var args []any
	if filters.DateFrom != nil {
		args = append(args, *filters.DateFrom)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filters.DateTo != nil {
		args = append(args, *filters.DateTo)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if filters.MinAmount != nil {
		args = append(args, *filters.MinAmount)
		query += fmt.Sprintf(" AND amount >= $%d", len(args))
	}
	if filters.MaxAmount != nil {
		args = append(args, *filters.MaxAmount)
		query += fmt.Sprintf(" AND amount <= $%d", len(args))
	}
	return args, query
}
