package enginedb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/launchforge/curve-middleware/pkg/launchstore"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("creating curve_params table...")
			_, err := db.NewCreateTable().
				Model((*launchstore.CurveParamsDao)(nil)).
				IfNotExists().
				Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("dropping curve_params table...")
			_, err := db.NewDropTable().
				Model((*launchstore.CurveParamsDao)(nil)).
				IfExists().
				Exec(ctx)
			return err
		},
	)
}
