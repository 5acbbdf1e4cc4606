package importer

import (
	"context"
	"fmt"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/sheet"
)

// Cleaner removes already imported rows from the working sheet.
type Cleaner struct {
	Store sheet.Store
	Sheet string
	Audit *audit.Logger
}

func (c *Cleaner) Cleanup(ctx context.Context) (int, error) {
	schema, rows, records, err := sheet.Records(ctx, c.Store, c.Sheet)
	if err != nil {
		return 0, storageErr("read "+c.Sheet, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if !schema.Has(sheet.FieldImportStatus) {
		return 0, &ConfigError{Message: fmt.Sprintf("sheet %q has no %q column", c.Sheet, sheet.LabelOf(sheet.FieldImportStatus))}
	}

	var ids []int64
	for i, rec := range records {
		if IsImported(rec) {
			ids = append(ids, rows[i].ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.Store.DeleteRows(ctx, c.Sheet, ids); err != nil {
		return 0, storageErr("delete imported rows", err)
	}

	if c.Audit != nil {
		_ = c.Audit.Log(ctx, audit.Entry{
			Action:   audit.ActionCleanup,
			Message:  fmt.Sprintf("deleted %d imported rows", len(ids)),
			Metadata: map[string]any{"sheet": c.Sheet},
		})
	}
	return len(ids), nil
}
