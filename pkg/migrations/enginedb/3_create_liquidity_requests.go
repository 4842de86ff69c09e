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
			fmt.Println("creating liquidity_requests table...")
			if _, err := db.NewCreateTable().
				Model((*launchstore.LiquidityRequestDao)(nil)).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*launchstore.LiquidityRequestDao)(nil)).
				Index("idx_liquidity_requests_status").
				Column("status").
				Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*launchstore.LiquidityRequestDao)(nil)).
				Index("idx_liquidity_requests_token").
				Column("token_id").
				Exec(ctx); err != nil {
				return err
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("dropping liquidity_requests table...")
			_, err := db.NewDropTable().
				Model((*launchstore.LiquidityRequestDao)(nil)).
				IfExists().
				Exec(ctx)
			return err
		},
	)
}
