package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/earthrise-media/assetmap/api/model"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//PostgresStore keeps customers and lights in PostGIS
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

//columns lists the non id columns of a kind in insert/update order
func columns(kind model.Kind) []string {
	fields := model.Fields(kind)[1:]
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, f.Column)
	}
	return cols
}

func selectSql(kind model.Kind) string {
	return fmt.Sprintf("SELECT id, %s, st_asbinary(geom) FROM %s",
		strings.Join(columns(kind), ", "), kind.Table())
}

//values returns the column values of a record in columns() order
func values(rec model.GeoRecord) []interface{} {
	switch r := rec.(type) {
	case *model.Customer:
		return []interface{}{r.Name, r.Address, r.AccountNumber, r.PremiseNumber, r.ComponentId,
			r.ComponentType, r.NumberAccounted, r.NumberOff, r.Area, r.JobSet}
	case *model.Light:
		customer := pgtype.Int8{Status: pgtype.Null}
		if r.CustomerId != nil {
			customer = pgtype.Int8{Int: *r.CustomerId, Status: pgtype.Present}
		}
		return []interface{}{r.Title, r.Address, r.Status, r.Ptag, r.LrNumber, r.Area, r.JobSet, customer}
	}
	return nil
}

//Insert adds a record and sets its id
func (ps *PostgresStore) Insert(ctx context.Context, rec model.GeoRecord) (int64, error) {

	cols := columns(rec.Kind())
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s(%s, geom) VALUES(%s, ST_GeometryFromText($%d,4326)) RETURNING id",
		rec.Kind().Table(), strings.Join(cols, ", "), strings.Join(params, ", "), len(cols)+1)

	args := append(values(rec), wkt.MarshalString(rec.Point()))
	var id int64
	if err := ps.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if ref := referenceError(err); ref != nil {
			return 0, ref
		}
		zap.S().Errorf("error adding %s: %s", rec.Kind(), err.Error())
		return 0, errors.Wrapf(err, "insert %s", rec.Kind())
	}
	rec.SetId(id)
	return id, nil
}

//foreign_key_violation
const fkViolation = "23503"

//referenceError turns a failed customer_id reference into ErrInvalidValue, nil for anything else
func referenceError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
		return errors.Wrap(ErrInvalidValue, "customer does not exist")
	}
	return nil
}

//Get returns a single record by id
func (ps *PostgresStore) Get(ctx context.Context, kind model.Kind, id int64) (model.GeoRecord, error) {

	sql := selectSql(kind) + " WHERE id = $1"
	rec, err := scanToRecord(kind, ps.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "%s %d", kind, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %d", kind, id)
	}
	return rec, nil
}

//Save overwrites all columns and the location of an existing record
func (ps *PostgresStore) Save(ctx context.Context, rec model.GeoRecord) error {

	cols := columns(rec.Kind())
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s, geom = ST_GeometryFromText($%d,4326) WHERE id = $%d",
		rec.Kind().Table(), strings.Join(sets, ", "), len(cols)+1, len(cols)+2)

	args := append(values(rec), wkt.MarshalString(rec.Point()), rec.GetId())
	tag, err := ps.db.Exec(ctx, sql, args...)
	if err != nil {
		if ref := referenceError(err); ref != nil {
			return ref
		}
		return errors.Wrapf(err, "update %s %d", rec.Kind(), rec.GetId())
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "%s %d", rec.Kind(), rec.GetId())
	}
	return nil
}

//Delete removes a record. Lights pointing at a deleted customer are released by the FK.
func (ps *PostgresStore) Delete(ctx context.Context, kind model.Kind, id int64) error {

	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", kind.Table())
	tag, err := ps.db.Exec(ctx, sql, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s %d", kind, id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "%s %d", kind, id)
	}
	zap.S().Infof("deleted %s %d", kind, id)
	return nil
}

func (ps *PostgresStore) List(ctx context.Context, kind model.Kind) ([]model.GeoRecord, error) {

	rows, err := ps.db.Query(ctx, selectSql(kind)+" ORDER BY id")
	if err != nil {
		zap.L().Error(err.Error())
		return nil, errors.Wrapf(err, "list %s", kind)
	}
	defer rows.Close()
	return scanToRecords(kind, rows)
}

//Filter matches one recognized column exactly. The column name only ever
//comes from the field table, the value is always a parameter.
func (ps *PostgresStore) Filter(ctx context.Context, kind model.Kind, field string, value string) ([]model.GeoRecord, error) {

	f, err := model.LookupField(kind, field)
	if err != nil {
		return nil, err
	}
	arg, ok := filterArg(f, value)
	if !ok {
		return []model.GeoRecord{}, nil
	}

	sql := selectSql(kind) + fmt.Sprintf(" WHERE %s = $1 ORDER BY id", f.Column)
	rows, err := ps.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "filter %s on %s", kind, f.Column)
	}
	defer rows.Close()
	return scanToRecords(kind, rows)
}

//scanToRecord does all the nasty geometry stuff for one row
func scanToRecord(kind model.Kind, row pgx.Row) (model.GeoRecord, error) {

	var geom []byte
	var p orb.Point
	var err error
	rec := model.New(kind)

	switch r := rec.(type) {
	case *model.Customer:
		err = row.Scan(&r.Id, &r.Name, &r.Address, &r.AccountNumber, &r.PremiseNumber, &r.ComponentId,
			&r.ComponentType, &r.NumberAccounted, &r.NumberOff, &r.Area, &r.JobSet, &geom)
	case *model.Light:
		var customer pgtype.Int8
		err = row.Scan(&r.Id, &r.Title, &r.Address, &r.Status, &r.Ptag, &r.LrNumber, &r.Area, &r.JobSet,
			&customer, &geom)
		if err == nil && customer.Status == pgtype.Present {
			id := customer.Int
			r.CustomerId = &id
		}
	}
	if err != nil {
		return nil, err
	}

	scanner := wkb.Scanner(&p)
	if err = scanner.Scan(geom); err != nil {
		zap.S().Warnf("error scanning geometry: %s", err.Error())
		return nil, err
	}
	rec.SetPoint(p)
	return rec, nil
}

func scanToRecords(kind model.Kind, rows pgx.Rows) ([]model.GeoRecord, error) {

	recs := make([]model.GeoRecord, 0)
	for rows.Next() {
		rec, err := scanToRecord(kind, rows)
		if err != nil {
			zap.S().Warnf("error scanning %s row: %s", kind, err.Error())
			continue
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s rows", kind)
	}
	zap.L().Debug("returned ", zap.String("kind", string(kind)), zap.Int("rows", len(recs)))
	return recs, nil
}
