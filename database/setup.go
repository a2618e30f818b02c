package database

import (
	"context"

	"github.com/jackc/pgx/v4/log/zapadapter"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//Connect opens a pool that logs through zap
func Connect(ctx context.Context, connstring string, logger *zap.Logger) (*pgxpool.Pool, error) {

	poolConfig, err := pgxpool.ParseConfig(connstring)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse connection string")
	}
	poolConfig.ConnConfig.Logger = zapadapter.NewLogger(logger)

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return db, nil
}

//DeleteSchema cleans up the tables and data - useful for testing but not exposed to web
func DeleteSchema(db *pgxpool.Pool) error {
	dropTables := `DROP TABLE IF EXISTS lights CASCADE;
					DROP TABLE IF EXISTS customers CASCADE;`
	_, err := db.Exec(context.Background(), dropTables)
	return err
}

//SetupSchema creates the required tables if they don't exist
func SetupSchema(db *pgxpool.Pool) error {

	ctx := context.Background()

	//is postgis installed?
	row := db.QueryRow(ctx, "SELECT postgis_version()")
	var version string
	err := row.Scan(&version)

	if err != nil {
		zap.L().Warn("PostGIS not found...attempting to install")
		_, err := db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS POSTGIS")
		if err != nil {
			return errors.Wrap(err, "unable to install postgis")
		}
		zap.L().Info("Installed PostGIS")
	} else {
		zap.L().Info("Found PostGIS: " + version)
	}

	var count int64
	err = db.QueryRow(ctx, "SELECT count(id) FROM lights").Scan(&count)
	if err == nil {
		//tables likely exist
		return nil
	}
	zap.L().Info("attempting to create tables")

	createSql := `CREATE TABLE IF NOT EXISTS customers(
	id bigserial primary key,
	name text NOT NULL DEFAULT '',
	address text NOT NULL DEFAULT '',
	account_number bigint NOT NULL DEFAULT 0,
	premise_number bigint NOT NULL DEFAULT 0,
	component_id text NOT NULL DEFAULT '',
	component_type text NOT NULL DEFAULT '',
	number_accounted bigint NOT NULL DEFAULT 0,
	number_off bigint NOT NULL DEFAULT 0,
	area text NOT NULL DEFAULT '',
	job_set text NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS lights(
	id bigserial primary key,
	title text NOT NULL DEFAULT '',
	address text NOT NULL DEFAULT '',
	status text NOT NULL DEFAULT '',
	ptag bigint NOT NULL DEFAULT 0,
	lr_number text NOT NULL DEFAULT '',
	area text NOT NULL DEFAULT '',
	job_set text NOT NULL DEFAULT '',
	customer_id bigint REFERENCES customers(id) ON DELETE SET NULL);
SELECT AddGeometryColumn('customers', 'geom', 4326, 'POINT', 2, false);
SELECT AddGeometryColumn('lights', 'geom', 4326, 'POINT', 2, false);
`
	_, err = db.Exec(ctx, createSql)
	return err
}
