// Package pg is the PostgreSQL adapter of person.Store. Schema lives in
// migrations/ and is applied by the migrate command.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kartoteka.org/internal/person"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ person.Store = (*Store)(nil)

// Open connects with a bounded, recycled pool. Callers acquire a connection
// per logical unit of work through the database/sql pool and release it on
// every exit path.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; tests pass a sqlmock here.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const personColumns = `id, fio, phone, birth, coalesce(car_number,''), coalesce(address,''), coalesce(passport,'')`

func scanPerson(row interface{ Scan(...any) error }) (person.Person, error) {
	var p person.Person
	err := row.Scan(&p.ID, &p.FIO, &p.Phone, &p.Birth, &p.CarNumber, &p.Address, &p.Passport)
	return p, err
}

func (s *Store) PersonByPhone(ctx context.Context, phone string) (person.Person, error) {
	row := s.db.QueryRowContext(ctx, `select `+personColumns+` from persons where phone = $1`, phone)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return person.Person{}, person.ErrNotFound
	}
	if err != nil {
		return person.Person{}, err
	}
	return p, nil
}

func (s *Store) Search(ctx context.Context, query string, limit int) ([]person.Person, error) {
	if limit <= 0 {
		limit = person.DefaultSearchLimit
	}
	q := person.ClassifyQuery(query)
	if q.Raw == "" {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if q.Numeric {
		// Номерной запрос: телефон и паспорт, по нормализованной и сырой форме.
		rows, err = s.db.QueryContext(ctx, `
			select `+personColumns+` from persons
			where phone like '%'||$1||'%' or phone like '%'||$2||'%'
			   or coalesce(passport,'') like '%'||$1||'%' or coalesce(passport,'') like '%'||$2||'%'
			order by id
			limit $3
		`, q.Phone, q.Raw, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			select `+personColumns+` from persons
			where fio ilike '%'||$1||'%'
			   or coalesce(car_number,'') ilike '%'||$1||'%'
			   or coalesce(address,'') ilike '%'||$1||'%'
			   or phone like '%'||$2||'%'
			   or coalesce(passport,'') like '%'||$2||'%'
			order by id
			limit $3
		`, q.Text, q.Raw, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []person.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Save(ctx context.Context, draft person.Draft) (person.Person, error) {
	if !draft.Complete() {
		return person.Person{}, person.ErrInvalidDraft
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into persons(fio, phone, birth, car_number, address, passport)
		values ($1, $2, $3, nullif($4,''), nullif($5,''), nullif($6,''))
		returning id
	`, draft.FIO, draft.Phone, draft.Birth, draft.CarNumber, draft.Address, draft.Passport).Scan(&id)
	if err != nil {
		// The unique constraint backstops the pre-commit duplicate check:
		// two concurrent wizards may both pass the lookup, only one inserts.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return person.Person{}, person.ErrDuplicatePhone
		}
		return person.Person{}, err
	}
	return person.Person{
		ID:        id,
		FIO:       draft.FIO,
		Phone:     draft.Phone,
		Birth:     draft.Birth,
		CarNumber: draft.CarNumber,
		Address:   draft.Address,
		Passport:  draft.Passport,
	}, nil
}

func (s *Store) AppendLog(ctx context.Context, entry person.LogEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into user_logs(ts, user_id, username, action, details)
		values ($1, $2, nullif($3,''), $4, $5)
	`, ts, entry.UserID, entry.Username, entry.Action, entry.Details)
	return err
}

const logColumns = `id, ts, user_id, coalesce(username,''), action, coalesce(details,'')`

func (s *Store) RecentLogs(ctx context.Context, limit int) ([]person.LogEntry, error) {
	return s.queryLogs(ctx, `select `+logColumns+` from user_logs order by ts desc limit $1`, limit)
}

func (s *Store) FailedAuthLogs(ctx context.Context, limit int) ([]person.LogEntry, error) {
	return s.queryLogs(ctx, `
		select `+logColumns+` from user_logs
		where action = '`+person.ActionAuthFailed+`'
		order by ts desc
		limit $1
	`, limit)
}

func (s *Store) queryLogs(ctx context.Context, query string, limit int) ([]person.LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []person.LogEntry
	for rows.Next() {
		var e person.LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.Username, &e.Action, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (person.Stats, error) {
	var st person.Stats
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from persons),
			(select count(*) from user_logs),
			(select count(*) from user_logs where action = 'AUTH_FAILED')
	`).Scan(&st.TotalPersons, &st.TotalLogs, &st.FailedAuths)
	if err != nil {
		return person.Stats{}, err
	}
	return st, nil
}
