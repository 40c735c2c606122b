package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"kartoteka.org/internal/person"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func personRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "fio", "phone", "birth", "car_number", "address", "passport"})
}

func TestPersonByPhone(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("from persons where phone").
		WithArgs("79991234567").
		WillReturnRows(personRows().AddRow(1, "Иванов Иван", "79991234567", "1990-05-20", "A123AA123", "", ""))

	p, err := s.PersonByPhone(context.Background(), "79991234567")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.ID != 1 || p.FIO != "Иванов Иван" || p.CarNumber != "A123AA123" {
		t.Fatalf("person = %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPersonByPhoneNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("from persons where phone").
		WithArgs("70000000000").
		WillReturnRows(personRows())

	if _, err := s.PersonByPhone(context.Background(), "70000000000"); !errors.Is(err, person.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchTextShape(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("fio ilike").
		WithArgs("иванов", "Иванов", 100).
		WillReturnRows(personRows().
			AddRow(1, "Иванов Иван", "79991234567", "1990-05-20", "", "", "").
			AddRow(2, "Иванова Анна", "79991234568", "1991-06-21", "", "", ""))

	got, err := s.Search(context.Background(), "Иванов", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("results = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSearchNumericShape(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("where phone like").
		WithArgs("79991234567", "89991234567", 100).
		WillReturnRows(personRows().AddRow(1, "Иванов Иван", "79991234567", "1990-05-20", "", "", ""))

	got, err := s.Search(context.Background(), "89991234567", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Phone != "79991234567" {
		t.Fatalf("results = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s, mock := newMockStore(t)
	got, err := s.Search(context.Background(), "   ", 0)
	if err != nil || got != nil {
		t.Fatalf("empty query: %v %v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSave(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("insert into persons").
		WithArgs("Иванов Иван", "79991234567", "1990-05-20", "", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	p, err := s.Save(context.Background(), person.Draft{
		FIO:   "Иванов Иван",
		Phone: "79991234567",
		Birth: "1990-05-20",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.ID != 7 || p.Phone != "79991234567" {
		t.Fatalf("saved = %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveDuplicatePhone(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("insert into persons").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "persons_phone_key"})

	_, err := s.Save(context.Background(), person.Draft{
		FIO:   "Иванов Иван",
		Phone: "79991234567",
		Birth: "1990-05-20",
	})
	if !errors.Is(err, person.ErrDuplicatePhone) {
		t.Fatalf("err = %v, want ErrDuplicatePhone", err)
	}
}

func TestSaveIncompleteDraft(t *testing.T) {
	s, _ := newMockStore(t)
	if _, err := s.Save(context.Background(), person.Draft{FIO: "Иванов Иван"}); !errors.Is(err, person.ErrInvalidDraft) {
		t.Fatalf("err = %v, want ErrInvalidDraft", err)
	}
}

func TestAppendLog(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("insert into user_logs").
		WithArgs(ts, int64(42), "tester", person.ActionAuthFailed, "Неверный код: 00000").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.AppendLog(context.Background(), person.LogEntry{
		Timestamp: ts,
		UserID:    42,
		Username:  "tester",
		Action:    person.ActionAuthFailed,
		Details:   "Неверный код: 00000",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func logRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "ts", "user_id", "username", "action", "details"})
}

func TestFailedAuthLogs(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("from user_logs").
		WithArgs(10).
		WillReturnRows(logRows().
			AddRow(2, ts, 42, "tester", person.ActionAuthFailed, "Неверный код: 00000").
			AddRow(1, ts.Add(-time.Minute), 43, "", person.ActionAuthFailed, ""))

	got, err := s.FailedAuthLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("failed auth logs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Username != "tester" || got[1].Username != "" {
		t.Fatalf("entries = %+v", got)
	}
}

func TestRecentLogsDefaultLimit(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("from user_logs").
		WithArgs(10).
		WillReturnRows(logRows())

	if _, err := s.RecentLogs(context.Background(), 0); err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStats(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("select count").
		WillReturnRows(sqlmock.NewRows([]string{"persons", "logs", "failed"}).AddRow(5, 20, 3))

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := person.Stats{TotalPersons: 5, TotalLogs: 20, FailedAuths: 3}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
}
