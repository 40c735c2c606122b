package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kartoteka.org/internal/obs"
	"kartoteka.org/internal/person"
	"kartoteka.org/internal/validate"
)

// Skip tokens for the three optional fields, matched case-insensitively.
var skipTokens = map[string]struct{}{
	"пропустить": {},
	"skip":       {},
	"нет":        {},
	"н":          {},
	"":           {},
}

func isSkip(text string) bool {
	_, ok := skipTokens[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func isCancel(text string) bool {
	return text == ButtonCancel || text == "/cancel"
}

type stepHandler func(r *Router, ctx context.Context, msg Message, s *session) error

// stepHandlers is the explicit state→handler dispatch table the wizard runs
// on; each handler either re-prompts in place or advances the step.
var stepHandlers = map[Step]stepHandler{
	StepName:     (*Router).stepName,
	StepPhone:    (*Router).stepPhone,
	StepBirth:    (*Router).stepBirth,
	StepCar:      (*Router).stepCar,
	StepAddress:  (*Router).stepAddress,
	StepPassport: (*Router).stepPassport,
}

const wizardIntro = "📝 <b>Добавление новой записи</b>\n\n" +
	"🔄 <b>Шаг 1/6:</b> Введите ФИО (Фамилия Имя Отчество)\n\n" +
	"💡 <i>Пример:</i> Иванов Иван Иванович"

// beginAdd opens the wizard for an authorized user and prompts for the name.
func (r *Router) beginAdd(ctx context.Context, msg Message, details string) error {
	r.sessions.startAdd(msg.UserID)
	r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionAddStart, details)
	return r.send(ctx, msg.UserID, wizardIntro, SendOptions{
		ParseMode: ParseModeHTML,
		Keyboard:  cancelKeyboard(),
	})
}

// handleWizard dispatches one inbound message to the current step; cancel
// works from every state.
func (r *Router) handleWizard(ctx context.Context, msg Message, s *session) error {
	if isCancel(msg.Text) {
		return r.cancelAdd(ctx, msg)
	}
	return stepHandlers[s.step](r, ctx, msg, s)
}

func (r *Router) cancelAdd(ctx context.Context, msg Message) error {
	r.sessions.end(msg.UserID)
	r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionAddCancelled, "Отмена добавления записи")
	return r.send(ctx, msg.UserID, "❌ <b>Добавление записи отменено.</b>", SendOptions{
		ParseMode: ParseModeHTML,
		Keyboard:  keyboardFor(r.auth.RoleOf(msg.UserID)),
	})
}

// rePrompt keeps the state and echoes the validation reason; nothing is
// retained for the rejected value.
func (r *Router) rePrompt(ctx context.Context, userID int64, reason string) error {
	text := fmt.Sprintf("❌ <b>Ошибка:</b> %s\n\n🔄 <i>Попробуйте еще раз:</i>", reason)
	return r.send(ctx, userID, text, SendOptions{ParseMode: ParseModeHTML})
}

func (r *Router) stepName(ctx context.Context, msg Message, s *session) error {
	fio := strings.TrimSpace(msg.Text)
	if ok, reason := validate.FIO(fio); !ok {
		return r.rePrompt(ctx, msg.UserID, reason)
	}
	s.draft.FIO = fio
	s.step = StepPhone
	text := fmt.Sprintf("✅ <b>ФИО сохранено:</b> %s\n\n"+
		"🔄 <b>Шаг 2/6:</b> Введите номер телефона\n\n"+
		"📱 <i>Формат:</i> 11 цифр (например: 79991234567)", fio)
	return r.send(ctx, msg.UserID, text, SendOptions{ParseMode: ParseModeHTML})
}

func (r *Router) stepPhone(ctx context.Context, msg Message, s *session) error {
	if ok, reason := validate.Phone(msg.Text); !ok {
		return r.rePrompt(ctx, msg.UserID, reason)
	}
	phone := validate.NormalizePhone(msg.Text)

	// Pre-commit duplicate check; the store's unique constraint backstops
	// the race between two concurrent wizards.
	_, err := r.store.PersonByPhone(ctx, phone)
	switch {
	case err == nil:
		text := fmt.Sprintf("❌ <b>Ошибка:</b> Запись с телефоном %s уже существует!\n\n"+
			"🔄 <i>Попробуйте другой номер:</i>", phone)
		return r.send(ctx, msg.UserID, text, SendOptions{ParseMode: ParseModeHTML})
	case !errors.Is(err, person.ErrNotFound):
		return r.abortAdd(ctx, msg, err)
	}

	s.draft.Phone = phone
	s.step = StepBirth
	text := fmt.Sprintf("✅ <b>Телефон сохранен:</b> %s\n\n"+
		"🔄 <b>Шаг 3/6:</b> Введите дату рождения\n\n"+
		"📅 <i>Формат:</i> YYYY-MM-DD (например: 1992-03-15)", phone)
	return r.send(ctx, msg.UserID, text, SendOptions{ParseMode: ParseModeHTML})
}

func (r *Router) stepBirth(ctx context.Context, msg Message, s *session) error {
	birth := strings.TrimSpace(msg.Text)
	if ok, reason := validate.BirthDate(birth); !ok {
		return r.rePrompt(ctx, msg.UserID, reason)
	}
	s.draft.Birth = birth
	s.step = StepCar
	text := fmt.Sprintf("✅ <b>Дата рождения сохранена:</b> %s\n\n"+
		"🔄 <b>Шаг 4/6:</b> Введите номер автомобиля (или отправьте 'пропустить')\n\n"+
		"🚗 <i>Пример:</i> A123AA123\n"+
		"⏭️ <i>Или отправьте:</i> пропустить", birth)
	return r.send(ctx, msg.UserID, text, SendOptions{ParseMode: ParseModeHTML})
}

func (r *Router) stepCar(ctx context.Context, msg Message, s *session) error {
	car := strings.TrimSpace(msg.Text)
	if isSkip(car) {
		car = ""
	}
	s.draft.CarNumber = car
	s.step = StepAddress
	text := fmt.Sprintf("✅ <b>Номер автомобиля сохранен:</b> %s\n\n"+
		"🔄 <b>Шаг 5/6:</b> Введите адрес (или отправьте 'пропустить')\n\n"+
		"🏠 <i>Пример:</i> г. Москва, ул. Ленина, д. 1, кв. 1\n"+
		"⏭️ <i>Или отправьте:</i> пропустить", orNotSet(car))
	return r.send(ctx, msg.UserID, text, SendOptions{ParseMode: ParseModeHTML})
}

func (r *Router) stepAddress(ctx context.Context, msg Message, s *session) error {
	address := strings.TrimSpace(msg.Text)
	if isSkip(address) {
		address = ""
	}
	s.draft.Address = address
	s.step = StepPassport
	text := fmt.Sprintf("✅ <b>Адрес сохранен:</b> %s\n\n"+
		"🔄 <b>Шаг 6/6:</b> Введите паспортные данные (или отправьте 'пропустить')\n\n"+
		"📄 <i>Пример:</i> 1234 567890\n"+
		"⏭️ <i>Или отправьте:</i> пропустить", orNotSet(address))
	return r.send(ctx, msg.UserID, text, SendOptions{ParseMode: ParseModeHTML})
}

func (r *Router) stepPassport(ctx context.Context, msg Message, s *session) error {
	passport := strings.TrimSpace(msg.Text)
	if isSkip(passport) {
		passport = ""
	}
	s.draft.Passport = passport
	return r.commitAdd(ctx, msg, s)
}

// commitAdd re-validates the required fields as a safety net and persists the
// draft. On any failure the session is torn down rather than retried in place.
func (r *Router) commitAdd(ctx context.Context, msg Message, s *session) error {
	draft := s.draft
	if ok, _ := validate.FIO(draft.FIO); !ok || !draft.Complete() {
		return r.abortAdd(ctx, msg, person.ErrInvalidDraft)
	}
	if ok, _ := validate.Phone(draft.Phone); !ok {
		return r.abortAdd(ctx, msg, person.ErrInvalidDraft)
	}
	if ok, _ := validate.BirthDate(draft.Birth); !ok {
		return r.abortAdd(ctx, msg, person.ErrInvalidDraft)
	}

	saved, err := r.store.Save(ctx, draft)
	if err != nil {
		return r.abortAdd(ctx, msg, err)
	}

	r.sessions.end(msg.UserID)
	details := fmt.Sprintf("Добавлена запись: %s, %s, %s", saved.FIO, saved.Phone, saved.Birth)
	r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionAddSuccess, details)
	text := "🎉 <b>Запись успешно добавлена!</b>\n\n" + FormatRecord(saved)
	return r.send(ctx, msg.UserID, text, SendOptions{
		ParseMode: ParseModeHTML,
		Keyboard:  keyboardFor(r.auth.RoleOf(msg.UserID)),
	})
}

// abortAdd clears the session after a commit-path failure. A late duplicate
// (two wizards racing past the phone check) gets the duplicate message; store
// failures are never surfaced verbatim.
func (r *Router) abortAdd(ctx context.Context, msg Message, err error) error {
	r.sessions.end(msg.UserID)
	r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionAddError, "Ошибка при сохранении данных")

	text := "❌ <b>Ошибка при сохранении данных.</b> Попробуйте еще раз."
	if errors.Is(err, person.ErrDuplicatePhone) {
		text = "❌ <b>Ошибка:</b> Запись с таким телефоном уже существует!"
	} else if !errors.Is(err, person.ErrInvalidDraft) {
		obs.StoreError()
		r.log.Error("save person failed", zap.Error(err), zap.Int64("user_id", msg.UserID))
	}
	return r.send(ctx, msg.UserID, text, SendOptions{
		ParseMode: ParseModeHTML,
		Keyboard:  keyboardFor(r.auth.RoleOf(msg.UserID)),
	})
}

func orNotSet(v string) string {
	if v == "" {
		return "не указан"
	}
	return v
}
