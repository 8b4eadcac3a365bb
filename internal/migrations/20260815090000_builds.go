package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260815090000",
		up:      mig_20260815090000_builds_up,
		down:    mig_20260815090000_builds_down,
	})
}

func mig_20260815090000_builds_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE builds (
			id uuid PRIMARY KEY,
			project_id varchar(255) NOT NULL DEFAULT '',
			sandbox_id varchar(255) NOT NULL DEFAULT '',
			app_name varchar(255) NOT NULL DEFAULT '',
			slug varchar(255) NOT NULL DEFAULT '',
			success boolean NOT NULL DEFAULT false,
			error text NOT NULL DEFAULT '',
			preview_url text NOT NULL DEFAULT '',
			qr_code_url text NOT NULL DEFAULT '',
			expo_url text NOT NULL DEFAULT '',
			tunnel_command_id varchar(255) NOT NULL DEFAULT '',
			created_at timestamptz NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX builds_created_at_idx ON builds (created_at DESC);`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX builds_sandbox_id_idx ON builds (sandbox_id);`)
	if err != nil {
		return err
	}

	return nil
}

func mig_20260815090000_builds_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS builds;`)
	return err
}
