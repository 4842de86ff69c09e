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
			fmt.Println("creating deployments table...")
			if _, err := db.NewCreateTable().
				Model((*launchstore.DeploymentDao)(nil)).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*launchstore.DeploymentDao)(nil)).
				Index("idx_deployments_token_chain").
				Unique().
				Column("token_id", "chain").
				Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*launchstore.DeploymentDao)(nil)).
				Index("idx_deployments_status").
				Column("status").
				Exec(ctx); err != nil {
				return err
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("dropping deployments table...")
			_, err := db.NewDropTable().
				Model((*launchstore.DeploymentDao)(nil)).
				IfExists().
				Exec(ctx)
			return err
		},
	)
}
