package sheets

import (
	"context"

	"gastos/internal/core"
)

// ActivityWriter mirrors journal records to an external sheet.
type ActivityWriter interface {
	Append(ctx context.Context, a core.Activity) (rowRef string, err error)
}
