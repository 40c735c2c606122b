package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kartoteka.org/internal/person"
)

func TestWizardFullFlow(t *testing.T) {
	r, tr, store, _ := newTestRouter(t)
	say(r, 100, "12345")
	say(r, 100, ButtonAdd)

	if !strings.Contains(tr.last(t).Text, "Шаг 1/6") {
		t.Fatalf("intro = %q", tr.last(t).Text)
	}
	if kb := tr.last(t).Opts.Keyboard; len(kb) != 1 || kb[0][0] != ButtonCancel {
		t.Fatalf("intro keyboard = %v, want cancel only", kb)
	}

	say(r, 100, "Иванов Иван Иванович")
	if !strings.Contains(tr.last(t).Text, "Шаг 2/6") {
		t.Fatalf("after name = %q", tr.last(t).Text)
	}
	say(r, 100, "89991234567")
	if !strings.Contains(tr.last(t).Text, "Телефон сохранен: 79991234567") {
		t.Fatalf("after phone = %q", tr.last(t).Text)
	}
	say(r, 100, "1990-05-20")
	say(r, 100, "пропустить")
	say(r, 100, "skip")
	say(r, 100, "нет")

	final := tr.last(t)
	if !strings.Contains(final.Text, "Запись успешно добавлена") {
		t.Fatalf("final = %q", final.Text)
	}
	if len(final.Opts.Keyboard) == 0 {
		t.Fatal("role menu not restored after commit")
	}

	p, err := store.PersonByPhone(context.Background(), "79991234567")
	if err != nil {
		t.Fatalf("saved person: %v", err)
	}
	if p.FIO != "Иванов Иван Иванович" || p.Birth != "1990-05-20" {
		t.Fatalf("saved = %+v", p)
	}
	if p.CarNumber != "" || p.Address != "" || p.Passport != "" {
		t.Fatalf("skipped fields not empty: %+v", p)
	}
	if e := lastLog(t, store); e.Action != person.ActionAddSuccess {
		t.Fatalf("logged action = %q, want %q", e.Action, person.ActionAddSuccess)
	}
}

func TestWizardOptionalFieldsStored(t *testing.T) {
	r, _, store, _ := newTestRouter(t)
	say(r, 101, "12345")
	say(r, 101, "/add")
	say(r, 101, "Петров Пётр")
	say(r, 101, "79990000001")
	say(r, 101, "1985-01-02")
	say(r, 101, "A123AA123")
	say(r, 101, "г. Москва, ул. Ленина, д. 1")
	say(r, 101, "1234 567890")

	p, err := store.PersonByPhone(context.Background(), "79990000001")
	if err != nil {
		t.Fatalf("saved person: %v", err)
	}
	if p.CarNumber != "A123AA123" || p.Address != "г. Москва, ул. Ленина, д. 1" || p.Passport != "1234 567890" {
		t.Fatalf("optional fields = %+v", p)
	}
}

func TestWizardInvalidInputReprompts(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)
	say(r, 102, "12345")
	say(r, 102, ButtonAdd)

	say(r, 102, "Иванов123")
	if !strings.Contains(tr.last(t).Text, "Ошибка") {
		t.Fatalf("reply = %q, want validation error", tr.last(t).Text)
	}
	// The state did not advance: a valid name still goes through.
	say(r, 102, "Иванов Иван")
	if !strings.Contains(tr.last(t).Text, "Шаг 2/6") {
		t.Fatalf("after retry = %q", tr.last(t).Text)
	}

	say(r, 102, "12345")
	if !strings.Contains(tr.last(t).Text, "11 цифр") {
		t.Fatalf("short phone reply = %q", tr.last(t).Text)
	}
	say(r, 102, "79990000002")
	say(r, 102, "20.05.1990")
	if !strings.Contains(tr.last(t).Text, "YYYY-MM-DD") {
		t.Fatalf("bad date reply = %q", tr.last(t).Text)
	}
}

func TestWizardCancel(t *testing.T) {
	r, tr, store, _ := newTestRouter(t)
	say(r, 103, "12345")
	say(r, 103, ButtonAdd)
	say(r, 103, "Иванов Иван")
	say(r, 103, ButtonCancel)

	if !strings.Contains(tr.last(t).Text, "Добавление записи отменено") {
		t.Fatalf("reply = %q", tr.last(t).Text)
	}
	if e := lastLog(t, store); e.Action != person.ActionAddCancelled {
		t.Fatalf("logged action = %q, want %q", e.Action, person.ActionAddCancelled)
	}

	// A new wizard starts from a clean draft at step one.
	say(r, 103, ButtonAdd)
	if !strings.Contains(tr.last(t).Text, "Шаг 1/6") {
		t.Fatalf("restart = %q", tr.last(t).Text)
	}
}

func TestWizardDuplicatePhoneStaysOnStep(t *testing.T) {
	r, tr, store, _ := newTestRouter(t)
	mustSave(t, store, person.Draft{FIO: "Иванов Иван", Phone: "79991234567", Birth: "1990-05-20"})
	say(r, 104, "12345")
	say(r, 104, ButtonAdd)
	say(r, 104, "Петров Пётр")

	say(r, 104, "89991234567")
	if !strings.Contains(tr.last(t).Text, "уже существует") {
		t.Fatalf("duplicate reply = %q", tr.last(t).Text)
	}
	// Still awaiting a phone: a fresh number advances to the birth step.
	say(r, 104, "79990000003")
	if !strings.Contains(tr.last(t).Text, "Шаг 3/6") {
		t.Fatalf("after new phone = %q", tr.last(t).Text)
	}
}

// dupOnSaveStore simulates the race where a second wizard commits the same
// phone between the pre-commit check and the insert.
type dupOnSaveStore struct {
	*person.InMemory
}

func (s *dupOnSaveStore) Save(ctx context.Context, draft person.Draft) (person.Person, error) {
	return person.Person{}, person.ErrDuplicatePhone
}

func TestWizardLateDuplicateAborts(t *testing.T) {
	r, tr, store, _ := newTestRouter(t)
	r.store = &dupOnSaveStore{InMemory: store}

	say(r, 105, "12345")
	say(r, 105, ButtonAdd)
	say(r, 105, "Иванов Иван")
	say(r, 105, "79990000004")
	say(r, 105, "1990-05-20")
	say(r, 105, "пропустить")
	say(r, 105, "пропустить")
	say(r, 105, "пропустить")

	if !strings.Contains(tr.last(t).Text, "таким телефоном уже существует") {
		t.Fatalf("reply = %q", tr.last(t).Text)
	}
	if e := lastLog(t, store); e.Action != person.ActionAddError {
		t.Fatalf("logged action = %q, want %q", e.Action, person.ActionAddError)
	}
	// Session torn down: free text is a search again, not wizard input.
	say(r, 105, "Иванов")
	if got := tr.last(t).Text; !strings.Contains(got, "Ничего не найдено") && !strings.Contains(got, "Найдено") {
		t.Fatalf("post-abort reply = %q, want a search response", got)
	}
}

// failingStore returns an error from every search.
type failingStore struct {
	*person.InMemory
}

func (s *failingStore) Search(ctx context.Context, query string, limit int) ([]person.Person, error) {
	return nil, errors.New("boom")
}

func TestSearchStoreFailure(t *testing.T) {
	r, tr, store, _ := newTestRouter(t)
	r.store = &failingStore{InMemory: store}

	say(r, 106, "12345")
	say(r, 106, "Иванов")
	if got := tr.last(t).Text; got != searchFailed {
		t.Fatalf("reply = %q, want generic search failure", got)
	}
	if e := lastLog(t, store); e.Action != person.ActionSearchError {
		t.Fatalf("logged action = %q, want %q", e.Action, person.ActionSearchError)
	}
}
